package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	stripewebhook "github.com/rapidsites/storefront/internal/webhooks/stripe"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/redis"
	"github.com/rapidsites/storefront/pkg/types"
)

const testSecret = "whsec_test"

type stubWebhookService struct {
	result stripewebhook.Result
	err    error
	calls  int
	during func()
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Result, error) {
	s.calls++
	if s.during != nil {
		s.during()
	}
	return s.result, s.err
}

type stubGuard struct {
	seen map[string]bool
	err  error
}

func (g *stubGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.seen[eventID], nil
}

func (g *stubGuard) Remember(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	g.seen[eventID] = true
	return nil
}

// redisLike rejects calls on a done context as go-redis does.
type redisLike struct {
	values map[string]string
}

func (r *redisLike) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := r.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (r *redisLike) Set(ctx context.Context, key string, value any, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.values[key] = fmt.Sprint(value)
	return nil
}

func (r *redisLike) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type staticSecret string

func (s staticSecret) SigningSecret() string { return string(s) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func signedRequest(t *testing.T, secret string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_123",
		"object":      "event",
		"type":        "checkout.session.completed",
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": map[string]any{"id": "cs_123", "object": "checkout.session"}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(string(signed.Payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func decodeAck(t *testing.T, resp *httptest.ResponseRecorder) types.WebhookAck {
	t.Helper()
	var ack types.WebhookAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return ack
}

func TestStripeWebhookCreatesOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubWebhookService{result: stripewebhook.Result{OrderID: orderID, OrderNumber: "OPAL-ABC-WXYZ"}}
	resp := httptest.NewRecorder()
	StripeWebhook(svc, staticSecret(testSecret), &stubGuard{}, testLogger()).ServeHTTP(resp, signedRequest(t, testSecret))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	ack := decodeAck(t, resp)
	if !ack.Received || ack.OrderID != orderID.String() || ack.OrderNumber != "OPAL-ABC-WXYZ" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestStripeWebhookDuplicateSession(t *testing.T) {
	svc := &stubWebhookService{result: stripewebhook.Result{Duplicate: true}}
	resp := httptest.NewRecorder()
	StripeWebhook(svc, staticSecret(testSecret), &stubGuard{}, testLogger()).ServeHTTP(resp, signedRequest(t, testSecret))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ack := decodeAck(t, resp); !ack.Received || !ack.Duplicate || ack.OrderID != "" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestStripeWebhookReplayedEventSkipsService(t *testing.T) {
	svc := &stubWebhookService{result: stripewebhook.Result{OrderID: uuid.New()}}
	guard := &stubGuard{}
	handler := StripeWebhook(svc, staticSecret(testSecret), guard, testLogger())

	handler.ServeHTTP(httptest.NewRecorder(), signedRequest(t, testSecret))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(t, testSecret))

	if svc.calls != 1 {
		t.Fatalf("expected one service call got %d", svc.calls)
	}
	if ack := decodeAck(t, resp); !ack.Duplicate {
		t.Fatalf("expected duplicate ack, got %+v", ack)
	}
}

func TestStripeWebhookSignatureFailures(t *testing.T) {
	cases := map[string]func(t *testing.T) *http.Request{
		"missing header": func(t *testing.T) *http.Request {
			req := signedRequest(t, testSecret)
			req.Header.Del("Stripe-Signature")
			return req
		},
		"wrong secret": func(t *testing.T) *http.Request { return signedRequest(t, "whsec_other") },
		"garbage header": func(t *testing.T) *http.Request {
			req := signedRequest(t, testSecret)
			req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
			return req
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubWebhookService{}
			resp := httptest.NewRecorder()
			StripeWebhook(svc, staticSecret(testSecret), &stubGuard{}, testLogger()).ServeHTTP(resp, build(t))

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
			var envelope types.ErrorEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if envelope.Error.Code != string(pkgerrors.CodeSignatureInvalid) {
				t.Fatalf("unexpected code %s", envelope.Error.Code)
			}
			if svc.calls != 0 {
				t.Fatalf("service must not run on bad signature")
			}
		})
	}
}

func TestStripeWebhookMissingSecret(t *testing.T) {
	resp := httptest.NewRecorder()
	StripeWebhook(&stubWebhookService{}, staticSecret(""), &stubGuard{}, testLogger()).ServeHTTP(resp, signedRequest(t, testSecret))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestStripeWebhookFailureIsRetried(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := &stubGuard{}
	handler := StripeWebhook(svc, staticSecret(testSecret), guard, testLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(t, testSecret))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if guard.seen["evt_123"] {
		t.Fatal("failed event must not be remembered")
	}

	svc.err = nil
	svc.result = stripewebhook.Result{OrderID: uuid.New(), OrderNumber: "OPAL-RETRY-0001"}
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(t, testSecret))
	if ack := decodeAck(t, resp); ack.Duplicate || ack.OrderNumber != "OPAL-RETRY-0001" {
		t.Fatalf("retry should be processed, got %+v", ack)
	}
	if svc.calls != 2 {
		t.Fatalf("expected two service calls got %d", svc.calls)
	}
}

func TestStripeWebhookCanceledDeliveryIsRetried(t *testing.T) {
	guard, err := stripewebhook.NewEventGuard(&redisLike{values: map[string]string{}}, time.Hour, "stripe_event")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	svc := &stubWebhookService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, context.Canceled, "create order"), during: cancel}
	handler := StripeWebhook(svc, staticSecret(testSecret), guard, testLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(t, testSecret).WithContext(ctx))
	if resp.Code < 500 {
		t.Fatalf("expected a retryable status got %d", resp.Code)
	}

	svc.err, svc.during = nil, nil
	svc.result = stripewebhook.Result{OrderID: uuid.New(), OrderNumber: "OPAL-LATE-0002"}
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(t, testSecret))
	if ack := decodeAck(t, resp); ack.Duplicate || ack.OrderNumber != "OPAL-LATE-0002" {
		t.Fatalf("retry after a dropped delivery should create the order, got %+v", ack)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(t, testSecret))
	if ack := decodeAck(t, resp); !ack.Duplicate {
		t.Fatalf("expected duplicate ack after success, got %+v", ack)
	}
	if svc.calls != 2 {
		t.Fatalf("expected two service calls got %d", svc.calls)
	}
}

func TestStripeWebhookGuardUnavailable(t *testing.T) {
	svc := &stubWebhookService{}
	resp := httptest.NewRecorder()
	StripeWebhook(svc, staticSecret(testSecret), &stubGuard{err: errors.New("redis down")}, testLogger()).ServeHTTP(resp, signedRequest(t, testSecret))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not run without the replay guard")
	}
}
