package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rapidsites/storefront/pkg/redis"
)

var errNoEventID = errors.New("event id is required")

// EventGuard remembers handled event ids for a retention window so a
// replayed delivery is acknowledged without running the handler again.
// Ids are recorded only after the handler succeeds; concurrent first
// deliveries are deduplicated by the orders unique constraint.
type EventGuard struct {
	store  redis.IdempotencyStore
	scope  string
	retain time.Duration
	now    func() time.Time
}

func NewEventGuard(store redis.IdempotencyStore, retain time.Duration, scope string) (*EventGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("event guard: store is required")
	case retain <= 0:
		return nil, errors.New("event guard: retention must be positive")
	case strings.TrimSpace(scope) == "":
		return nil, errors.New("event guard: scope is required")
	}
	return &EventGuard{store: store, scope: scope, retain: retain, now: time.Now}, nil
}

// Seen reports whether eventID was already handled.
func (g *EventGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	_, err = g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.ErrNil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup event %s: %w", eventID, err)
	}
	return true, nil
}

// Remember records eventID as handled. Cancellation of ctx is ignored.
func (g *EventGuard) Remember(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Set(context.WithoutCancel(ctx), key, g.now().UTC().Format(time.RFC3339), g.retain); err != nil {
		return fmt.Errorf("remember event %s: %w", eventID, err)
	}
	return nil
}

func (g *EventGuard) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errNoEventID
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
