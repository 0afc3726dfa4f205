// Package registry maps outbox event types to their Pub/Sub topic and typed
// payload, and rejects rows that can never be delivered.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/outbox"
	"github.com/rapidsites/storefront/pkg/outbox/payloads"
)

// PermanentError marks a row that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

type route struct {
	topic  string
	decode func(json.RawMessage) (any, error)
}

// Decoded is an outbox row ready to publish.
type Decoded struct {
	Topic    string
	Envelope outbox.Envelope
	Data     any
}

type Catalog struct {
	routes map[enums.OutboxEventType]route
}

func NewCatalog(cfg config.PubSubConfig) (*Catalog, error) {
	orders := strings.TrimSpace(cfg.OrdersTopic)
	if orders == "" {
		return nil, errors.New("orders topic is required")
	}
	return &Catalog{routes: map[enums.OutboxEventType]route{
		enums.EventOrderCreated:       {topic: orders, decode: decodeAs[payloads.OrderCreatedEvent]},
		enums.EventOrderStatusChanged: {topic: orders, decode: decodeAs[payloads.OrderStatusChangedEvent]},
	}}, nil
}

// Topics lists every destination the catalog can route to.
func (c *Catalog) Topics() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range c.routes {
		if !seen[r.topic] {
			seen[r.topic] = true
			out = append(out, r.topic)
		}
	}
	return out
}

// Decode validates row and returns its topic and typed data. Every error is
// permanent.
func (c *Catalog) Decode(row models.OutboxEvent) (*Decoded, error) {
	r, ok := c.routes[row.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("no route for event type %q", row.EventType))
	}
	if want := row.EventType.Aggregate(); row.AggregateType != want {
		return nil, Permanent(fmt.Errorf("%s stored against %q, want %q", row.EventType, row.AggregateType, want))
	}
	if row.AggregateID == uuid.Nil {
		return nil, Permanent(fmt.Errorf("%s has no aggregate id", row.EventType))
	}

	var env outbox.Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	switch {
	case env.Version != outbox.EnvelopeVersion:
		return nil, Permanent(fmt.Errorf("unsupported envelope version %d", env.Version))
	case env.EventID == "":
		return nil, Permanent(errors.New("envelope has no event id"))
	case env.TenantID == uuid.Nil:
		return nil, Permanent(errors.New("envelope has no tenant id"))
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s has no data", row.EventType))
	}
	decoded, err := r.decode(data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", row.EventType, err))
	}
	return &Decoded{Topic: r.topic, Envelope: env, Data: decoded}, nil
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
