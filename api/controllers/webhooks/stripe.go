package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/rapidsites/storefront/api/responses"
	stripewebhook "github.com/rapidsites/storefront/internal/webhooks/stripe"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	stripeclient "github.com/rapidsites/storefront/pkg/stripe"
	"github.com/rapidsites/storefront/pkg/types"
)

const (
	signatureHeader = "Stripe-Signature"
	maxPayloadBytes = 1 << 20
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Result, error)
}

type stripeWebhookGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}

type signingSecretSource interface {
	SigningSecret() string
}

// StripeWebhook verifies and reconciles payment gateway deliveries. Any
// failure before the order commits answers non-2xx so the gateway retries.
func StripeWebhook(svc StripeWebhookService, secrets signingSecretSource, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "Missing stripe-signature header"))
			return
		}

		secret := ""
		if secrets != nil {
			secret = secrets.SigningSecret()
		}
		event, err := stripeclient.VerifyEvent(payload, sigHeader, secret)
		if errors.Is(err, stripeclient.ErrSigningSecretMissing) {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Webhook secret not configured"))
			return
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignatureInvalid, err, "Invalid signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
		}

		seen, err := guard.Seen(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if seen {
			if logg != nil {
				logg.Info(ctx, "stripe event already processed")
			}
			responses.WriteWebhookAck(w, types.WebhookAck{Duplicate: true})
			return
		}

		result, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := guard.Remember(ctx, event.ID); err != nil && logg != nil {
			logg.Error(ctx, "failed to remember stripe event", err)
		}

		ack := types.WebhookAck{Duplicate: result.Duplicate, OrderNumber: result.OrderNumber}
		if result.OrderID != uuid.Nil {
			ack.OrderID = result.OrderID.String()
		}
		responses.WriteWebhookAck(w, ack)
	}
}
