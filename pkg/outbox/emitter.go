package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/logger"
)

// EnvelopeVersion is bumped whenever Envelope changes shape.
const EnvelopeVersion = 1

// DomainEvent is what services hand to Emit. Data is marshalled as-is into
// the envelope.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	TenantID      uuid.UUID
	Actor         *Actor
	Data          any
	OccurredAt    time.Time
}

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

// Emitter appends domain events to the outbox table inside the caller's
// transaction.
type Emitter struct {
	rows  inserter
	logg  *logger.Logger
	now   func() time.Time
	newID func() string
}

func NewEmitter(repo *Repository, logg *logger.Logger) *Emitter {
	return &Emitter{rows: repo, logg: logg, now: time.Now, newID: uuid.NewString}
}

func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
	if event.TenantID == uuid.Nil {
		return fmt.Errorf("%s: tenant id required", event.EventType)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = e.now()
	}
	envelope := Envelope{
		Version:    EnvelopeVersion,
		EventID:    e.newID(),
		TenantID:   event.TenantID,
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := e.rows.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("insert %s: %w", event.EventType, err)
	}

	if e.logg != nil {
		e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}
