package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/redis"
	"github.com/rapidsites/storefront/pkg/types"
)

type redisRepository struct {
	store redis.CartStore
	logg  *logger.Logger
}

// NewRedisRepository stores each cart as a JSON array under a session-scoped key.
func NewRedisRepository(store redis.CartStore, logg *logger.Logger) (Repository, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	return &redisRepository{store: store, logg: logg}, nil
}

// Load returns the persisted items. Missing or unreadable payloads yield an empty
// list; only backend failures are returned as errors.
func (r *redisRepository) Load(ctx context.Context, session Session) ([]types.CartItem, error) {
	raw, err := r.store.Get(ctx, r.key(session))
	if errors.Is(err, redis.ErrNil) {
		return []types.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	items, ok := decodeItems(raw)
	if !ok && r.logg != nil {
		r.logg.Warn(r.logg.WithCartSession(ctx, session.ID), "cart payload unreadable, treating as empty")
	}
	return items, nil
}

func (r *redisRepository) Save(ctx context.Context, session Session, items []types.CartItem, ttl time.Duration) error {
	if items == nil {
		items = []types.CartItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, r.key(session), string(payload), ttl)
}

func (r *redisRepository) Delete(ctx context.Context, session Session) error {
	return r.store.Del(ctx, r.key(session))
}

func (r *redisRepository) key(session Session) string {
	return r.store.CartKey(session.TenantID.String(), session.ID)
}

// decodeItems parses a stored cart. Anything other than a JSON array of items
// is reported as unreadable; malformed entries inside the array are dropped.
func decodeItems(raw string) ([]types.CartItem, bool) {
	var items []types.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []types.CartItem{}, false
	}
	clean := make([]types.CartItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			continue
		}
		clean = append(clean, item)
	}
	return clean, true
}
