// Package relay drains the outbox table to Pub/Sub. Rows are locked for the
// duration of a batch so several relays can run side by side.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/metrics"
	"github.com/rapidsites/storefront/pkg/outbox/registry"
	"github.com/rapidsites/storefront/pkg/pubsub"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxIdleBackoff        = 10 * time.Second
	jitter                = 250 * time.Millisecond
)

const (
	reasonUndeliverable = "undeliverable"
	reasonMaxAttempts   = "max_attempts"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type decoder interface {
	Decode(models.OutboxEvent) (*registry.Decoded, error)
}

// Sender delivers one message and blocks until the broker acknowledges it.
type Sender interface {
	Send(ctx context.Context, topic string, msg pubsub.Message) (string, error)
}

type orderingResumer interface {
	ResumeOrdering(topic, key string)
}

type Params struct {
	DB             txRunner
	Store          store
	Catalog        decoder
	Sender         Sender
	Logger         *logger.Logger
	Metrics        *metrics.OutboxMetrics
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	PublishTimeout time.Duration
}

// Stats summarises one drained batch.
type Stats struct {
	Published int
	Retrying  int
	Parked    int
}

func (s Stats) Empty() bool { return s.Published+s.Retrying+s.Parked == 0 }

type Relay struct {
	db             txRunner
	store          store
	catalog        decoder
	sender         Sender
	logg           *logger.Logger
	metrics        *metrics.OutboxMetrics
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

func New(p Params) (*Relay, error) {
	switch {
	case p.DB == nil:
		return nil, errors.New("db runner required")
	case p.Store == nil:
		return nil, errors.New("outbox store required")
	case p.Catalog == nil:
		return nil, errors.New("event catalog required")
	case p.Sender == nil:
		return nil, errors.New("sender required")
	case p.Logger == nil:
		return nil, errors.New("logger required")
	}
	r := &Relay{
		db:             p.DB,
		store:          p.Store,
		catalog:        p.Catalog,
		sender:         p.Sender,
		logg:           p.Logger,
		metrics:        p.Metrics,
		batchSize:      orDefault(p.BatchSize, defaultBatchSize),
		maxAttempts:    orDefault(p.MaxAttempts, defaultMaxAttempts),
		pollInterval:   orDefault(p.PollInterval, defaultPollInterval),
		publishTimeout: orDefault(p.PublishTimeout, defaultPublishTimeout),
		sleep:          sleepCtx,
	}
	return r, nil
}

// Run drains batches until ctx is cancelled. A full batch is followed
// immediately by the next one; an empty batch waits one poll interval and
// consecutive errors back off up to maxIdleBackoff.
func (r *Relay) Run(ctx context.Context) error {
	wait := r.pollInterval
	for {
		stats, err := r.Drain(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case !stats.Empty():
			wait = r.pollInterval
			continue
		default:
			wait = r.pollInterval
		}
		if err := r.sleep(ctx, wait+rand.N(jitter)); err != nil {
			return err
		}
	}
}

// Drain publishes one batch inside a single transaction.
func (r *Relay) Drain(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = Stats{}
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		for _, row := range rows {
			if err := r.deliver(ctx, tx, row, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	return stats, err
}

// deliver returns an error only when the row's state could not be recorded.
func (r *Relay) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, stats *Stats) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	decoded, err := r.catalog.Decode(row)
	if err != nil {
		stats.Parked++
		return r.park(ctx, tx, row, reasonUndeliverable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_id":  decoded.Envelope.EventID,
		"tenant_id": decoded.Envelope.TenantID.String(),
		"topic":     decoded.Topic,
	})

	msg := message(row, decoded)
	sendCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	serverID, err := r.sender.Send(sendCtx, decoded.Topic, msg)
	cancel()

	switch {
	case err == nil:
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		stats.Published++
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Info(r.logg.WithField(ctx, "message_id", serverID), "outbox event published")
		return nil
	case registry.IsPermanent(err):
		stats.Parked++
		return r.park(ctx, tx, row, reasonUndeliverable, err)
	}

	if resumer, ok := r.sender.(orderingResumer); ok {
		resumer.ResumeOrdering(decoded.Topic, msg.OrderingKey)
	}
	if row.AttemptCount+1 >= r.maxAttempts {
		stats.Parked++
		return r.park(ctx, tx, row, reasonMaxAttempts, fmt.Errorf("giving up after %d attempts: %w", r.maxAttempts, err))
	}
	if err := r.store.MarkFailedTx(tx, row.ID, err); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	stats.Retrying++
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed, will retry")
	return nil
}

func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason string, cause error) error {
	if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	r.metrics.IncTerminal(reason)
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"reason": reason,
		"error":  cause.Error(),
	}), "outbox event parked")
	return nil
}

// message keys ordering by tenant so a tenant's order events arrive in
// commit order.
func message(row models.OutboxEvent, d *registry.Decoded) pubsub.Message {
	return pubsub.Message{
		Data:        row.Payload,
		OrderingKey: d.Envelope.TenantID.String(),
		Attributes: map[string]string{
			"event_id":       d.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"tenant_id":      d.Envelope.TenantID.String(),
			"schema_version": fmt.Sprint(d.Envelope.Version),
			"occurred_at":    d.Envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
