package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actor names whoever caused an event. Events raised by the payment webhook
// have no actor.
type Actor struct {
	Kind    string    `json:"kind"`
	AdminID uuid.UUID `json:"adminId"`
}

func AdminActor(id uuid.UUID) *Actor {
	return &Actor{Kind: "admin", AdminID: id}
}

// Envelope is the JSON stored in outbox_events.payload and published as the
// message body.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	TenantID   uuid.UUID       `json:"tenantId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
