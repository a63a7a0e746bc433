package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

func testGatewayConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:       baseURL,
		KeyID:         "key_test",
		KeySecret:     "secret_test",
		WebhookSecret: "whsec_test",
		Currency:      "INR",
		Timeout:       2 * time.Second,
		MaxAttempts:   3,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestNewClientValidatesCredentials(t *testing.T) {
	ctx := context.Background()
	logg := testLogger(t)

	cfg := testGatewayConfig("https://api.novapay.test")
	cfg.KeyID = ""
	_, err := NewClient(ctx, cfg, logg)
	require.ErrorIs(t, err, errKeyIDRequired)

	cfg = testGatewayConfig("https://api.novapay.test")
	cfg.WebhookSecret = " "
	_, err = NewClient(ctx, cfg, logg)
	require.ErrorIs(t, err, errWebhookSecretRequired)

	_, err = NewClient(ctx, testGatewayConfig("https://api.novapay.test"), nil)
	require.ErrorIs(t, err, errLoggerRequired)
}

func TestCreateOrderSendsMinorUnits(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_test", user)
		assert.Equal(t, "secret_test", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_nv_123",
			Amount:   got.Amount,
			Currency: got.Currency,
			Receipt:  got.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), testGatewayConfig(srv.URL), testLogger(t))
	require.NoError(t, err)

	order, err := client.CreateOrder(context.Background(), decimal.RequireFromString("100.50"), "order_42")
	require.NoError(t, err)
	assert.Equal(t, "order_nv_123", order.ID)
	assert.Equal(t, int64(10050), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "order_42", got.Receipt)
}

func TestCreateOrderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Order{ID: "order_nv_retry", Status: "created"})
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), testGatewayConfig(srv.URL), testLogger(t))
	require.NoError(t, err)

	order, err := client.CreateOrder(context.Background(), decimal.NewFromInt(10), "order_7")
	require.NoError(t, err)
	assert.Equal(t, "order_nv_retry", order.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateOrderDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), testGatewayConfig(srv.URL), testLogger(t))
	require.NoError(t, err)

	_, err = client.CreateOrder(context.Background(), decimal.NewFromInt(10), "order_8")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	client, err := NewClient(context.Background(), testGatewayConfig("https://api.novapay.test"), testLogger(t))
	require.NoError(t, err)

	_, err = client.CreateOrder(context.Background(), decimal.Zero, "order_9")
	require.Error(t, err)
}

func TestVerifyPaymentSignature(t *testing.T) {
	client, err := NewClient(context.Background(), testGatewayConfig("https://api.novapay.test"), testLogger(t))
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret_test"))
	mac.Write([]byte("order_nv_1|pay_nv_1"))
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyPaymentSignature("order_nv_1", "pay_nv_1", sig))
	assert.True(t, client.VerifyPaymentSignature("order_nv_1", "pay_nv_1", " "+sig+" "))
	assert.False(t, client.VerifyPaymentSignature("order_nv_1", "pay_nv_2", sig))
	assert.False(t, client.VerifyPaymentSignature("order_nv_1", "pay_nv_1", "deadbeef"))
	assert.False(t, client.VerifyPaymentSignature("", "pay_nv_1", sig))
}

func TestVerifyWebhookSignature(t *testing.T) {
	client, err := NewClient(context.Background(), testGatewayConfig("https://api.novapay.test"), testLogger(t))
	require.NoError(t, err)

	body := []byte(`{"event":"payment.captured","payment_id":"pay_1"}`)
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyWebhookSignature(body, sig))
	assert.False(t, client.VerifyWebhookSignature([]byte(`{"event":"tampered"}`), sig))
	assert.False(t, client.VerifyWebhookSignature(body, ""))
	assert.False(t, client.VerifyWebhookSignature(nil, sig))
}
