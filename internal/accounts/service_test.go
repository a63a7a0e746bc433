package accounts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/internal/notifications"
	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

type recordingMailer struct {
	sent []string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Account{}))
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB, mailer notifications.Mailer) Service {
	t.Helper()
	if mailer == nil {
		mailer = notifications.NoopMailer{}
	}
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(
		NewRepository(conn),
		mailer,
		nil,
		config.JWTConfig{Secret: "test-secret", Issuer: "novatra", ExpirationMinutes: 60},
		config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16},
		config.OTPConfig{TTL: 10 * time.Minute, SendWindow: 5 * time.Minute, SendLimit: 3},
		logg,
	)
	require.NoError(t, err)
	return svc
}

func registeredAccount(t *testing.T, conn *gorm.DB, svc Service, input RegisterInput) *models.Account {
	t.Helper()
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	var account models.Account
	require.NoError(t, conn.First(&account, "email = ?", NormalizeEmail(input.Email)).Error)
	return &account
}

func TestRegisterCustomerIssuesOTP(t *testing.T) {
	conn := newTestDB(t)
	mailer := &recordingMailer{}
	svc := newTestService(t, conn, mailer)

	dto, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", dto.Email)
	assert.Equal(t, enums.RoleCustomer.String(), dto.Role)
	assert.False(t, dto.EmailVerified)
	assert.Nil(t, dto.IsApproved)
	require.Len(t, mailer.sent, 1)

	var account models.Account
	require.NoError(t, conn.First(&account, "email = ?", "asha@example.com").Error)
	require.NotNil(t, account.OTPCode)
	assert.Len(t, *account.OTPCode, 6)
	require.NotNil(t, account.OTPExpiresAt)
}

func TestRegisterMerchantRequiresStoreName(t *testing.T) {
	svc := newTestService(t, newTestDB(t), nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "pass1234",
		Role:     enums.RoleMerchant,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := newTestService(t, newTestDB(t), nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Eve",
		Email:    "eve@example.com",
		Password: "pass1234",
		Role:     enums.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)

	input := RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "pass1234"}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestVerifyOTPMarksVerifiedAndClearsCode(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})

	result, err := svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.Account.EmailVerified)

	var stored models.Account
	require.NoError(t, conn.First(&stored, "id = ?", account.ID).Error)
	assert.Nil(t, stored.OTPCode)
	assert.Nil(t, stored.OTPExpiresAt)
	assert.NotNil(t, stored.EmailVerifiedAt)

	// The code cannot be replayed once consumed.
	_, err = svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestVerifyOTPRejectsWrongAndExpiredCodes(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})

	_, err := svc.VerifyOTP(context.Background(), account.Email, "000000")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	expired := time.Now().Add(-time.Minute)
	require.NoError(t, conn.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("otp_expires_at", expired).Error)

	_, err = svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginHappyPath(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})
	_, err := svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "asha@example.com", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, account.ID, result.Account.ID)
}

func TestLoginRejectsBadPasswordAndUnknownEmail(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})
	_, err := svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "asha@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = svc.Login(context.Background(), "nobody@example.com", "pass1234")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsUnverifiedEmail(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})

	_, err := svc.Login(context.Background(), "asha@example.com", "pass1234")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestLoginRejectsUnapprovedMerchant(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Ravi", Email: "ravi@example.com", Password: "pass1234",
		Role: enums.RoleMerchant, StoreName: "Ravi Traders",
	})
	_, err := svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ravi@example.com", "pass1234")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotApproved, pkgerrors.As(err).Code())

	require.NoError(t, conn.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("is_approved", true).Error)

	result, err := svc.Login(context.Background(), "ravi@example.com", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLoginWithOTPFlow(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})
	_, err := svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.NoError(t, err)

	require.NoError(t, svc.RequestLoginOTP(context.Background(), "asha@example.com"))

	var stored models.Account
	require.NoError(t, conn.First(&stored, "id = ?", account.ID).Error)
	require.NotNil(t, stored.OTPCode)

	result, err := svc.LoginWithOTP(context.Background(), "asha@example.com", *stored.OTPCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestForgotAndResetPassword(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})
	_, err := svc.VerifyOTP(context.Background(), account.Email, *account.OTPCode)
	require.NoError(t, err)

	// Unknown addresses are answered without error to avoid enumeration.
	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))

	require.NoError(t, svc.ForgotPassword(context.Background(), "asha@example.com"))

	var stored models.Account
	require.NoError(t, conn.First(&stored, "id = ?", account.ID).Error)
	require.NotNil(t, stored.OTPCode)

	require.NoError(t, svc.ResetPassword(context.Background(), "asha@example.com", *stored.OTPCode, "newpass99"))

	_, err = svc.Login(context.Background(), "asha@example.com", "pass1234")
	require.Error(t, err)

	result, err := svc.Login(context.Background(), "asha@example.com", "newpass99")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestGetAndUpdateProfile(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Ravi", Email: "ravi@example.com", Password: "pass1234",
		Role: enums.RoleMerchant, StoreName: "Ravi Traders",
	})

	dto, err := svc.GetProfile(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", dto.Name)
	require.NotNil(t, dto.StoreName)
	assert.Equal(t, "Ravi Traders", *dto.StoreName)

	newName := "Ravi K"
	newStore := "RK Traders"
	updated, err := svc.UpdateProfile(context.Background(), account.ID, UpdateProfileInput{
		Name:      &newName,
		StoreName: &newStore,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", updated.Name)
	assert.Equal(t, "RK Traders", *updated.StoreName)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateProfileStoreNameRejectedForCustomers(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	account := registeredAccount(t, conn, svc, RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "pass1234",
	})

	store := "Asha Mart"
	_, err := svc.UpdateProfile(context.Background(), account.ID, UpdateProfileInput{StoreName: &store})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
