package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novatra-store/novatra-backend/internal/notifications"
	"github.com/novatra-store/novatra-backend/pkg/auth"
	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/security"
)

// Service exposes registration, authentication, and profile operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AccountDTO, error)
	VerifyOTP(ctx context.Context, email, code string) (*AuthResultDTO, error)
	Login(ctx context.Context, email, password string) (*AuthResultDTO, error)
	RequestLoginOTP(ctx context.Context, email string) error
	LoginWithOTP(ctx context.Context, email, code string) (*AuthResultDTO, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	GetProfile(ctx context.Context, accountID uuid.UUID) (*AccountDTO, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, input UpdateProfileInput) (*AccountDTO, error)
}

// RegisterInput holds the validated payload to create an account.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Role      enums.Role
	StoreName string
}

// UpdateProfileInput holds optional profile mutations.
type UpdateProfileInput struct {
	Name      *string
	Password  *string
	StoreName *string
}

// OTPThrottle bounds how often codes can be issued per address.
type OTPThrottle interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OTPThrottleKey(email string) string
}

type service struct {
	repo     *Repository
	mailer   notifications.Mailer
	throttle OTPThrottle
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	otpCfg   config.OTPConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the accounts service.
func NewService(
	repo *Repository,
	mailer notifications.Mailer,
	throttle OTPThrottle,
	jwtCfg config.JWTConfig,
	pwCfg config.PasswordConfig,
	otpCfg config.OTPConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		mailer:   mailer,
		throttle: throttle,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		otpCfg:   otpCfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AccountDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = NormalizeEmail(input.Email)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, and password are required")
	}
	if input.Role == "" {
		input.Role = enums.RoleCustomer
	}
	if !input.Role.IsValid() || input.Role.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be customer or merchant")
	}
	if input.Role.IsMerchant() && strings.TrimSpace(input.StoreName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required for merchants")
	}

	exists, err := s.repo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking email")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	account := &models.Account{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: &hash,
		Role:         input.Role,
	}
	if input.Role.IsMerchant() {
		storeName := strings.TrimSpace(input.StoreName)
		account.StoreName = &storeName
	}

	if err := s.issueOTP(ctx, account); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating account")
	}

	s.logg.Info(s.logg.WithAccountID(ctx, created.ID.String()), "account registered")
	dto := toAccountDTO(created)
	return &dto, nil
}

func (s *service) VerifyOTP(ctx context.Context, email, code string) (*AuthResultDTO, error) {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.consumeOTP(ctx, account, code); err != nil {
		return nil, err
	}

	now := s.now()
	if account.EmailVerifiedAt == nil {
		account.EmailVerifiedAt = &now
	}
	if _, err := s.repo.Update(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving account")
	}

	return s.authResult(account)
}

func (s *service) Login(ctx context.Context, email, password string) (*AuthResultDTO, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}

	if account.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	ok, err := security.VerifyPassword(password, *account.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if !account.IsEmailVerified() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email not verified")
	}
	if account.Role.IsMerchant() && !account.IsApproved {
		return nil, pkgerrors.New(pkgerrors.CodeNotApproved, "merchant account pending approval")
	}

	return s.authResult(account)
}

func (s *service) RequestLoginOTP(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.issueOTP(ctx, account); err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving account")
	}
	return nil
}

func (s *service) LoginWithOTP(ctx context.Context, email, code string) (*AuthResultDTO, error) {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.consumeOTP(ctx, account, code); err != nil {
		return nil, err
	}

	now := s.now()
	if account.EmailVerifiedAt == nil {
		account.EmailVerifiedAt = &now
	}
	if _, err := s.repo.Update(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving account")
	}

	if account.Role.IsMerchant() && !account.IsApproved {
		return nil, pkgerrors.New(pkgerrors.CodeNotApproved, "merchant account pending approval")
	}

	return s.authResult(account)
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the address exists.
		if IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	if err := s.issueOTP(ctx, account); err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving account")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.consumeOTP(ctx, account, code); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	account.PasswordHash = &hash

	if _, err := s.repo.Update(ctx, account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving account")
	}
	s.logg.Info(s.logg.WithAccountID(ctx, account.ID.String()), "password reset completed")
	return nil
}

func (s *service) GetProfile(ctx context.Context, accountID uuid.UUID) (*AccountDTO, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

func (s *service) UpdateProfile(ctx context.Context, accountID uuid.UUID, input UpdateProfileInput) (*AccountDTO, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		account.Name = name
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.pwCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
		}
		account.PasswordHash = &hash
	}
	if input.StoreName != nil {
		if !account.Role.IsMerchant() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name applies to merchants only")
		}
		storeName := strings.TrimSpace(*input.StoreName)
		if storeName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name cannot be empty")
		}
		account.StoreName = &storeName
	}

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving account")
	}
	dto := toAccountDTO(updated)
	return &dto, nil
}

func (s *service) findByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	return account, nil
}

// issueOTP stamps a fresh code on the account and emails it. The throttle
// bounds issuance per address; a full window returns a rate limit error.
func (s *service) issueOTP(ctx context.Context, account *models.Account) error {
	if s.throttle != nil {
		count, err := s.throttle.IncrWithTTL(ctx, s.throttle.OTPThrottleKey(account.Email), s.otpCfg.SendWindow)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("otp throttle unavailable: %v", err))
		} else if count > int64(s.otpCfg.SendLimit) {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many codes requested, try again later")
		}
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating otp")
	}
	expires := s.now().Add(s.otpCfg.TTL)
	account.OTPCode = &code
	account.OTPExpiresAt = &expires

	subject, body := notifications.OTPMessage(account.Name, code, int(s.otpCfg.TTL.Minutes()))
	if err := s.mailer.Send(ctx, account.Email, subject, body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending otp mail")
	}
	return nil
}

// consumeOTP validates the submitted code and wipes it so it cannot be
// replayed. Callers persist the account afterwards.
func (s *service) consumeOTP(ctx context.Context, account *models.Account, code string) error {
	if account.OTPCode == nil || account.OTPExpiresAt == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "no pending verification code")
	}
	if s.now().After(*account.OTPExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "verification code expired")
	}
	if !security.CompareOTP(*account.OTPCode, strings.TrimSpace(code)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid verification code")
	}
	account.ClearOTP()
	return nil
}

func (s *service) authResult(account *models.Account) (*AuthResultDTO, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		AccountID: account.ID,
		Role:      account.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}
	return &AuthResultDTO{Token: token, Account: toAccountDTO(account)}, nil
}
