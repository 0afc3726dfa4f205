package relay

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/db/dbtest"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/outbox"
	"github.com/rapidsites/storefront/pkg/outbox/payloads"
	"github.com/rapidsites/storefront/pkg/outbox/registry"
	"github.com/rapidsites/storefront/pkg/pubsub"
)

type sent struct {
	topic string
	msg   pubsub.Message
}

type fakeSender struct {
	err     error
	sent    []sent
	resumed []string
}

func (f *fakeSender) Send(_ context.Context, topic string, msg pubsub.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sent{topic: topic, msg: msg})
	return "msg-1", nil
}

func (f *fakeSender) ResumeOrdering(_, key string) { f.resumed = append(f.resumed, key) }

type harness struct {
	conn    *gorm.DB
	emitter *outbox.Emitter
	sender  *fakeSender
	relay   *Relay
}

func newHarness(t *testing.T, maxAttempts int) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	catalog, err := registry.NewCatalog(config.PubSubConfig{OrdersTopic: "storefront-order-events"})
	require.NoError(t, err)
	sender := &fakeSender{}
	r, err := New(Params{
		DB:          db.NewFromConn(conn),
		Store:       repo,
		Catalog:     catalog,
		Sender:      sender,
		Logger:      logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
		MaxAttempts: maxAttempts,
	})
	require.NoError(t, err)
	return &harness{conn: conn, emitter: outbox.NewEmitter(repo, nil), sender: sender, relay: r}
}

func (h *harness) emitOrderCreated(t *testing.T, tenantID uuid.UUID) uuid.UUID {
	t.Helper()
	orderID := uuid.New()
	require.NoError(t, h.conn.Transaction(func(tx *gorm.DB) error {
		return h.emitter.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			TenantID:      tenantID,
			Data: payloads.OrderCreatedEvent{
				OrderID:     orderID,
				OrderNumber: "OPAL-TEST-0001",
				TenantID:    tenantID,
				Total:       decimal.RequireFromString("125"),
				Currency:    "AUD",
				ItemCount:   1,
			},
		})
	}))
	return orderID
}

func (h *harness) row(t *testing.T, aggregateID uuid.UUID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, h.conn.Where("aggregate_id = ?", aggregateID).First(&row).Error)
	return row
}

func TestDrainPublishesAndMarksRows(t *testing.T) {
	h := newHarness(t, 3)
	tenantID := uuid.New()
	orderID := h.emitOrderCreated(t, tenantID)

	stats, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Published: 1}, stats)

	require.Len(t, h.sender.sent, 1)
	got := h.sender.sent[0]
	assert.Equal(t, "storefront-order-events", got.topic)
	assert.Equal(t, tenantID.String(), got.msg.OrderingKey)
	assert.Equal(t, "order_created", got.msg.Attributes["event_type"])
	assert.Equal(t, tenantID.String(), got.msg.Attributes["tenant_id"])
	assert.Equal(t, orderID.String(), got.msg.Attributes["aggregate_id"])
	assert.Equal(t, "1", got.msg.Attributes["schema_version"])
	assert.NotEmpty(t, got.msg.Attributes["event_id"])

	row := h.row(t, orderID)
	assert.NotNil(t, row.PublishedAt)

	stats, err = h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Empty())
}

func TestDrainRetriesThenParks(t *testing.T) {
	h := newHarness(t, 2)
	h.sender.err = errors.New("unavailable")
	orderID := h.emitOrderCreated(t, uuid.New())

	stats, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Retrying: 1}, stats)
	row := h.row(t, orderID)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "unavailable")
	assert.Len(t, h.sender.resumed, 1)

	stats, err = h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Parked: 1}, stats)
	row = h.row(t, orderID)
	assert.Equal(t, 2, row.AttemptCount)
	assert.Nil(t, row.PublishedAt)

	stats, err = h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Empty(), "parked rows are not fetched again")
}

func TestDrainParksUndeliverableRows(t *testing.T) {
	h := newHarness(t, 5)
	bad := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
	}
	require.NoError(t, h.conn.Create(&bad).Error)

	stats, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Parked: 1}, stats)
	assert.Empty(t, h.sender.sent)

	row := h.row(t, bad.AggregateID)
	assert.Equal(t, 5, row.AttemptCount)
}

func TestDrainParksPermanentSendErrors(t *testing.T) {
	h := newHarness(t, 5)
	h.sender.err = registry.Permanent(errors.New("message too large"))
	orderID := h.emitOrderCreated(t, uuid.New())

	stats, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Parked: 1}, stats)
	assert.Equal(t, 5, h.row(t, orderID).AttemptCount)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	h := newHarness(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	sleeps := 0
	h.relay.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		assert.GreaterOrEqual(t, d, defaultPollInterval)
		cancel()
		return ctx.Err()
	}

	err := h.relay.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sleeps)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.Error(t, err)
}
