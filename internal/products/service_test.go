package products

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/pagination"
)

type accountStub struct {
	accounts map[uuid.UUID]*models.Account
}

func (s *accountStub) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if account, ok := s.accounts[id]; ok {
		return account, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	accounts *accountStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.ProductReview{}))

	accounts := &accountStub{accounts: map[uuid.UUID]*models.Account{}}
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(NewRepository(conn), accounts, logg)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, accounts: accounts}
}

func (f *fixture) approvedMerchant(t *testing.T) Actor {
	t.Helper()
	id := uuid.New()
	f.accounts.accounts[id] = &models.Account{ID: id, Role: enums.RoleMerchant, IsApproved: true}
	return Actor{AccountID: id, Role: enums.RoleMerchant}
}

func (f *fixture) pendingMerchant(t *testing.T) Actor {
	t.Helper()
	id := uuid.New()
	f.accounts.accounts[id] = &models.Account{ID: id, Role: enums.RoleMerchant, IsApproved: false}
	return Actor{AccountID: id, Role: enums.RoleMerchant}
}

func admin() Actor {
	return Actor{AccountID: uuid.New(), Role: enums.RoleAdmin}
}

func customer() Actor {
	return Actor{AccountID: uuid.New(), Role: enums.RoleCustomer}
}

func createInput(name, category string, price string) CreateInput {
	return CreateInput{
		Name:     name,
		Category: category,
		Price:    decimal.RequireFromString(price),
		Stock:    5,
	}
}

func TestCreateRequiresApprovedMerchant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.pendingMerchant(t), createInput("Lamp", "home", "49.99"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotApproved, pkgerrors.As(err).Code())

	_, err = f.svc.Create(ctx, customer(), createInput("Lamp", "home", "49.99"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	dto, err := f.svc.Create(ctx, f.approvedMerchant(t), createInput("Lamp", "home", "49.99"))
	require.NoError(t, err)
	assert.Equal(t, "Lamp", dto.Name)
	require.NotNil(t, dto.MerchantID)
}

func TestCreateValidatesFields(t *testing.T) {
	f := newFixture(t)
	merchant := f.approvedMerchant(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, merchant, createInput("", "home", "10"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	input := createInput("Lamp", "home", "10")
	input.Price = decimal.Zero
	_, err = f.svc.Create(ctx, merchant, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	input = createInput("Lamp", "home", "10")
	input.Stock = -1
	_, err = f.svc.Create(ctx, merchant, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAdminCreateHasNoMerchant(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.Create(context.Background(), admin(), createInput("Desk", "office", "120"))
	require.NoError(t, err)
	assert.Nil(t, dto.MerchantID)
}

func TestUpdateEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.approvedMerchant(t)
	other := f.approvedMerchant(t)

	dto, err := f.svc.Create(ctx, owner, createInput("Lamp", "home", "49.99"))
	require.NoError(t, err)

	newName := "Bright Lamp"
	_, err = f.svc.Update(ctx, other, dto.ID, UpdateInput{Name: &newName})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	updated, err := f.svc.Update(ctx, owner, dto.ID, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Bright Lamp", updated.Name)

	// Admins bypass ownership.
	adminName := "Admin Lamp"
	updated, err = f.svc.Update(ctx, admin(), dto.ID, UpdateInput{Name: &adminName})
	require.NoError(t, err)
	assert.Equal(t, "Admin Lamp", updated.Name)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.approvedMerchant(t)
	other := f.approvedMerchant(t)

	dto, err := f.svc.Create(ctx, owner, createInput("Lamp", "home", "49.99"))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, other, dto.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	require.NoError(t, f.svc.Delete(ctx, owner, dto.ID))

	_, err = f.svc.Get(ctx, dto.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := f.approvedMerchant(t)

	_, err := f.svc.Create(ctx, merchant, createInput("Walnut Desk", "office", "300"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, merchant, createInput("Desk Lamp", "home", "45"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, merchant, createInput("Office Chair", "office", "150"))
	require.NoError(t, err)

	page, err := f.svc.List(ctx, ListFilter{Category: "office"}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.svc.List(ctx, ListFilter{Keyword: "desk"}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.svc.List(ctx, ListFilter{Sort: SortPriceAsc}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Desk Lamp", page.Items[0].Name)
	assert.Equal(t, "Walnut Desk", page.Items[2].Name)

	page, err = f.svc.List(ctx, ListFilter{}, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)

	min := decimal.NewFromInt(50)
	max := decimal.NewFromInt(200)
	page, err = f.svc.List(ctx, ListFilter{PriceMin: &min, PriceMax: &max}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Office Chair", page.Items[0].Name)
}

func TestAddReviewRecomputesAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := f.approvedMerchant(t)

	dto, err := f.svc.Create(ctx, merchant, createInput("Lamp", "home", "49.99"))
	require.NoError(t, err)

	buyer := customer()
	updated, err := f.svc.AddReview(ctx, buyer, "Asha", dto.ID, ReviewInput{Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.NumReviews)
	assert.True(t, updated.Rating.Equal(decimal.NewFromInt(5)))

	second := customer()
	updated, err = f.svc.AddReview(ctx, second, "Ravi", dto.ID, ReviewInput{Rating: 2, Comment: "meh"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.NumReviews)
	assert.True(t, updated.Rating.Equal(decimal.RequireFromString("3.5")), "got %s", updated.Rating)
	require.Len(t, updated.Reviews, 2)
}

func TestAddReviewRejectsDuplicatesAndBadRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := f.approvedMerchant(t)

	dto, err := f.svc.Create(ctx, merchant, createInput("Lamp", "home", "49.99"))
	require.NoError(t, err)

	buyer := customer()
	_, err = f.svc.AddReview(ctx, buyer, "Asha", dto.ID, ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = f.svc.AddReview(ctx, buyer, "Asha", dto.ID, ReviewInput{Rating: 3})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = f.svc.AddReview(ctx, customer(), "Ravi", dto.ID, ReviewInput{Rating: 6})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.AddReview(ctx, customer(), "Ravi", uuid.New(), ReviewInput{Rating: 3})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
