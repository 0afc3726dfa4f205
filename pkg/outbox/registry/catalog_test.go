package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/outbox"
	"github.com/rapidsites/storefront/pkg/outbox/payloads"
)

func envelope(t *testing.T, mutate func(*outbox.Envelope), data string) json.RawMessage {
	t.Helper()
	env := outbox.Envelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    uuid.NewString(),
		TenantID:   uuid.New(),
		OccurredAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(data),
	}
	if mutate != nil {
		mutate(&env)
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(config.PubSubConfig{OrdersTopic: " storefront-order-events "})
	require.NoError(t, err)
	return c
}

func TestDecodeOrderCreated(t *testing.T) {
	c := newCatalog(t)
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:     orderID,
		OrderNumber: "OPAL-ABC-1234",
		Total:       decimal.RequireFromString("515.00"),
		Currency:    "AUD",
		ItemCount:   2,
	})
	require.NoError(t, err)

	got, err := c.Decode(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope(t, nil, string(data)),
	})
	require.NoError(t, err)
	assert.Equal(t, "storefront-order-events", got.Topic)
	payload, ok := got.Data.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "got %T", got.Data)
	assert.Equal(t, "OPAL-ABC-1234", payload.OrderNumber)
	assert.True(t, payload.Total.Equal(decimal.NewFromInt(515)))
}

func TestDecodeRejectsUndeliverableRows(t *testing.T) {
	c := newCatalog(t)
	valid := `{"order_id":"` + uuid.NewString() + `"}`

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "order_lost", AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelope(t, nil, valid),
		},
		"aggregate mismatch": {
			EventType: enums.EventOrderCreated, AggregateType: "customer", AggregateID: uuid.New(),
			Payload: envelope(t, nil, valid),
		},
		"missing aggregate id": {
			EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder,
			Payload: envelope(t, nil, valid),
		},
		"bad envelope": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: json.RawMessage(`{`),
		},
		"future version": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelope(t, func(e *outbox.Envelope) { e.Version = 2 }, valid),
		},
		"no tenant": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelope(t, func(e *outbox.Envelope) { e.TenantID = uuid.Nil }, valid),
		},
		"null data": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelope(t, nil, "null"),
		},
		"wrong data shape": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelope(t, nil, `{"total":"lots"}`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(row)
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "expected permanent error, got %v", err)
		})
	}
}

func TestNewCatalogRequiresTopic(t *testing.T) {
	_, err := NewCatalog(config.PubSubConfig{OrdersTopic: "  "})
	assert.Error(t, err)
}

func TestCatalogTopicsAreUnique(t *testing.T) {
	assert.Equal(t, []string{"storefront-order-events"}, newCatalog(t).Topics())
}

func TestPermanentWrapping(t *testing.T) {
	base := errors.New("boom")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}
