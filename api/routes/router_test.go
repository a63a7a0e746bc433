package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novatra-store/novatra-backend/internal/accounts"
	"github.com/novatra-store/novatra-backend/internal/admin"
	"github.com/novatra-store/novatra-backend/internal/cart"
	"github.com/novatra-store/novatra-backend/internal/notifications"
	"github.com/novatra-store/novatra-backend/internal/orders"
	"github.com/novatra-store/novatra-backend/internal/products"
	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/db"
	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

type routerFixture struct {
	handler http.Handler
	db      *db.Client
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})

	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: "file::memory:"}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(
		&models.Account{},
		&models.Product{},
		&models.ProductReview{},
		&models.CartItem{},
		&models.WishlistItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	cfg := &config.Config{
		App:      config.AppConfig{Env: "test", Port: "0"},
		JWT:      config.JWTConfig{Secret: "router-secret", Issuer: "novatra", ExpirationMinutes: 60},
		Password: config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16},
		OTP:      config.OTPConfig{TTL: 10 * time.Minute, SendWindow: 5 * time.Minute, SendLimit: 3},
		Payments: config.PaymentsConfig{RawCapturePolicy: "verified_capture"},
		CORS:     config.CORSConfig{FrontendURL: "http://localhost:5173"},
	}

	mailer := notifications.NoopMailer{}
	accountsRepo := accounts.NewRepository(client.DB())
	productsRepo := products.NewRepository(client.DB())
	cartRepo := cart.NewRepository(client.DB())
	ordersRepo := orders.NewRepository(client.DB())

	accountsService, err := accounts.NewService(accountsRepo, mailer, nil, cfg.JWT, cfg.Password, cfg.OTP, logg)
	require.NoError(t, err)
	productsService, err := products.NewService(productsRepo, accountsRepo, logg)
	require.NoError(t, err)
	cartService, err := cart.NewService(cartRepo, productsRepo, logg)
	require.NoError(t, err)
	ordersService, err := orders.NewService(ordersRepo, productsRepo, cartRepo, client, nil, cfg.Payments.CapturePolicy(), logg)
	require.NoError(t, err)
	adminService, err := admin.NewService(accountsRepo, productsRepo, ordersRepo, client, mailer, logg)
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           client,
		AccountsRepo: accountsRepo,
		Accounts:     accountsService,
		Products:     productsService,
		Cart:         cartService,
		Orders:       ordersService,
		Admin:        adminService,
	})

	return &routerFixture{handler: handler, db: client}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func (f *routerFixture) registerAndVerify(t *testing.T, email, role, storeName string) string {
	t.Helper()
	payload := map[string]any{
		"name":     "Test User",
		"email":    email,
		"password": "pass12345",
		"role":     role,
	}
	if storeName != "" {
		payload["store_name"] = storeName
	}
	resp := f.do(t, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var account models.Account
	require.NoError(t, f.db.DB().First(&account, "email = ?", email).Error)
	require.NotNil(t, account.OTPCode)

	resp = f.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]any{
		"email": email,
		"code":  *account.OTPCode,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token
}

func TestHealthLive(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Novatra-Env"))
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestProfileRequiresToken(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterVerifyProfileFlow(t *testing.T) {
	f := newRouterFixture(t)
	token := f.registerAndVerify(t, "flow@example.com", "customer", "")

	resp := f.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "flow@example.com")
}

func TestUnapprovedMerchantCannotCreateProducts(t *testing.T) {
	f := newRouterFixture(t)
	token := f.registerAndVerify(t, "seller@example.com", "merchant", "Seller Goods")

	resp := f.do(t, http.MethodPost, "/api/merchant/products", token, map[string]any{
		"name":        "Lamp",
		"description": "Desk lamp",
		"category":    "home",
		"price":       "499.00",
		"stock":       5,
	})
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "NOT_APPROVED")
}

func TestUnapprovedMerchantCannotTouchOrders(t *testing.T) {
	f := newRouterFixture(t)
	token := f.registerAndVerify(t, "pending@example.com", "merchant", "Pending Goods")

	var merchant models.Account
	require.NoError(t, f.db.DB().First(&merchant, "email = ?", "pending@example.com").Error)
	require.False(t, merchant.IsApproved)

	order := models.Order{
		CustomerID:    uuid.New(),
		MerchantID:    &merchant.ID,
		PaymentMethod: enums.PaymentMethodCOD,
		TotalPrice:    decimal.NewFromInt(250),
		Status:        enums.OrderStatusPending,
	}
	require.NoError(t, f.db.DB().Create(&order).Error)

	resp := f.do(t, http.MethodGet, "/api/merchant/orders", token, nil)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "NOT_APPROVED")

	resp = f.do(t, http.MethodPatch, "/api/merchant/orders/"+order.ID.String()+"/status", token, map[string]any{
		"status": "Shipped",
	})
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "NOT_APPROVED")

	var stored models.Order
	require.NoError(t, f.db.DB().First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)

	require.NoError(t, f.db.DB().Model(&models.Account{}).
		Where("id = ?", merchant.ID).
		Update("is_approved", true).Error)

	resp = f.do(t, http.MethodPatch, "/api/merchant/orders/"+order.ID.String()+"/status", token, map[string]any{
		"status": "Shipped",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Shipped")
}

func TestApprovedMerchantCreatesProduct(t *testing.T) {
	f := newRouterFixture(t)
	token := f.registerAndVerify(t, "seller2@example.com", "merchant", "Seller Two")

	require.NoError(t, f.db.DB().Model(&models.Account{}).
		Where("email = ?", "seller2@example.com").
		Update("is_approved", true).Error)

	resp := f.do(t, http.MethodPost, "/api/merchant/products", token, map[string]any{
		"name":        "Lamp",
		"description": "Desk lamp",
		"category":    "home",
		"price":       "499.00",
		"stock":       5,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = f.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Lamp")
}

func TestCustomerCannotReachAdminRoutes(t *testing.T) {
	f := newRouterFixture(t)
	token := f.registerAndVerify(t, "cust@example.com", "customer", "")

	resp := f.do(t, http.MethodGet, "/api/admin/analytics", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCustomerCartRoundTrip(t *testing.T) {
	f := newRouterFixture(t)
	token := f.registerAndVerify(t, "shopper@example.com", "customer", "")

	product := models.Product{Name: "Mug", Description: "Mug", Category: "kitchen", Stock: 10}
	require.NoError(t, f.db.DB().Create(&product).Error)

	resp := f.do(t, http.MethodPost, "/api/cart/items", token, map[string]any{
		"product_id": product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = f.do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), fmt.Sprintf("%q", product.ID.String()))
}

func TestWebhookRejectedWithoutGateway(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodPost, "/api/webhooks/novapay", "", map[string]any{"event": "payment.captured"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
