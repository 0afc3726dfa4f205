package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"

	"github.com/rapidsites/storefront/pkg/logger"
)

// ErrUnavailable is returned while the breaker refuses calls to Stripe.
var ErrUnavailable = errors.New("payment provider temporarily unavailable")

type sessionAPI interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}

// BreakerSettings tunes the circuit breaker in front of hosted checkout.
type BreakerSettings struct {
	Failures uint32
	Cooldown time.Duration
}

// GuardedGateway short-circuits checkout calls after repeated provider
// failures. Rejections by Stripe (4xx) do not count against the breaker.
type GuardedGateway struct {
	next sessionAPI
	cb   *gobreaker.CircuitBreaker[*Session]
}

func NewGuardedGateway(next sessionAPI, settings BreakerSettings, logg *logger.Logger) (*GuardedGateway, error) {
	if next == nil {
		return nil, errors.New("checkout gateway required")
	}
	failures := settings.Failures
	if failures == 0 {
		failures = 5
	}
	cooldown := settings.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuit breaker state changed")
		},
	})
	return &GuardedGateway{next: next, cb: cb}, nil
}

func (g *GuardedGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	return g.execute(func() (*Session, error) { return g.next.CreateSession(ctx, req) })
}

func (g *GuardedGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	return g.execute(func() (*Session, error) { return g.next.GetSession(ctx, id) })
}

// State reports the breaker state name.
func (g *GuardedGateway) State() string {
	return g.cb.State().String()
}

func (g *GuardedGateway) execute(call func() (*Session, error)) (*Session, error) {
	sess, err := g.cb.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return sess, err
}

func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= http.StatusBadRequest &&
			stripeErr.HTTPStatusCode < http.StatusInternalServerError &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}
