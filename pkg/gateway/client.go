package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novatra-store/novatra-backend/pkg/config"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

var (
	errKeyIDRequired         = errors.New("gateway key id is required")
	errKeySecretRequired     = errors.New("gateway key secret is required")
	errWebhookSecretRequired = errors.New("gateway webhook secret is required")
	errLoggerRequired        = errors.New("gateway logger is required")
)

const signatureHeaderName = "X-Novapay-Signature"

// SignatureHeader is the request header carrying webhook signatures.
func SignatureHeader() string { return signatureHeaderName }

// Order is a payment order registered with Novapay.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client talks to the Novapay REST API and verifies its signatures.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
	maxAttempts   int
	logger        *logger.Logger
}

// NewClient initializes the Novapay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		currency:      cfg.Currency,
		maxAttempts:   maxAttempts,
		logger:        logg,
	}

	logg.Info(ctx, "novapay client initialized")
	return c, nil
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder registers an order with the gateway. Amounts are sent in minor
// units (paise for INR), so 100.50 becomes 10050.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*Order, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	payload := createOrderRequest{
		Amount:   amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency: c.currency,
		Receipt:  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding order request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		order, retryable, err := c.postOrder(ctx, body)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxAttempts {
			break
		}
		c.logger.Warn(ctx, fmt.Sprintf("novapay order attempt %d failed, retrying: %v", attempt, err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "creating gateway order")
}

func (c *Client) postOrder(ctx context.Context, body []byte) (*Order, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var order Order
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, false, fmt.Errorf("decoding order response: %w", err)
		}
		if order.ID == "" {
			return nil, false, errors.New("gateway returned empty order id")
		}
		return &order, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	default:
		return nil, false, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
}

// VerifyPaymentSignature checks the checkout callback signature, which is
// HMAC-SHA256 over "<gatewayOrderID>|<gatewayPaymentID>" with the key secret.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	expected := signHex([]byte(c.keySecret), []byte(gatewayOrderID+"|"+gatewayPaymentID))
	return hmacEqualHex(expected, signature)
}

// VerifyWebhookSignature checks a webhook delivery against the raw body bytes
// using the dedicated webhook secret.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if len(rawBody) == 0 || signature == "" {
		return false
	}
	expected := signHex([]byte(c.webhookSecret), rawBody)
	return hmacEqualHex(expected, signature)
}

func signHex(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func hmacEqualHex(expected, provided string) bool {
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(provided))))
}
