package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/novatra-store/novatra-backend/api/responses"
	ordersvc "github.com/novatra-store/novatra-backend/internal/orders"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/gateway"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/redis"
)

const (
	webhookEventPaymentCaptured = "payment.captured"
	webhookEventOrderPaid       = "order.paid"
	webhookGuardTTL             = 24 * time.Hour
)

// WebhookVerifier checks gateway signatures over the raw request body.
type WebhookVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

type webhookEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
	} `json:"payload"`
}

// NovapayWebhook settles orders from asynchronous gateway notifications. The
// signature covers the raw body, so it is read before any decoding. Events are
// deduplicated by id so gateway redelivery cannot double-apply.
func NovapayWebhook(svc ordersvc.Service, verifier WebhookVerifier, guard redis.IdempotencyStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured"))
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		signature := r.Header.Get(gateway.SignatureHeader())
		if !verifier.VerifyWebhookSignature(rawBody, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeBadSignature, "webhook signature mismatch"))
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(rawBody, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		if event.Event != webhookEventPaymentCaptured && event.Event != webhookEventOrderPaid {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "event", event.Event), "webhook.ignored")
			}
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}
		if event.Payload.OrderID == "" || event.Payload.PaymentID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing order or payment id"))
			return
		}

		release, fresh := acquireEventGuard(ctx, guard, event.ID, logg)
		if !fresh {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		if err := svc.MarkPaidByGatewayOrder(ctx, event.Payload.OrderID, event.Payload.PaymentID); err != nil {
			release()
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}

// acquireEventGuard claims the event id for processing. A guard store outage
// degrades to at-least-once delivery, which settlement tolerates because it
// is idempotent per order.
func acquireEventGuard(ctx context.Context, guard redis.IdempotencyStore, eventID string, logg *logger.Logger) (func(), bool) {
	if guard == nil || eventID == "" {
		return func() {}, true
	}

	key := guard.IdempotencyKey("webhook", eventID)
	claimed, err := guard.SetNX(ctx, key, "1", webhookGuardTTL)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "event_id", eventID), "webhook guard store unavailable, processing anyway")
		}
		return func() {}, true
	}
	if !claimed {
		return func() {}, false
	}

	release := func() {
		if err := guard.Del(ctx, key); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "event_id", eventID), "failed to release webhook guard")
		}
	}
	return release, true
}
