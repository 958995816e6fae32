// Package event publishes order, stock and lead lifecycle events to the
// admin panel websocket and, optionally, a Kafka topic.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderCourierSynced = "order.courier_synced"
	StockUpdated       = "stock.updated"
	LeadsAssigned      = "lead.assigned"
	LeadsReassigned    = "lead.reassigned"
	LeadStatusChanged  = "lead.status_changed"
	LeadDeleted        = "lead.deleted"
	ModeratorAdded     = "moderator.added"
	UserPresence       = "user.presence"
	SettingsUpdated    = "settings.updated"
)

const envelopeVersion = 1

// Actor identifies who caused the event
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Envelope wraps every event payload with routing metadata
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Key          string          `json:"key,omitempty"`
	Actor        *Actor          `json:"user,omitempty"`
	Message      string          `json:"message,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// Publisher is implemented by Bus; services depend on this interface
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, actor *Actor, message string, payload interface{})
}

// NewEnvelope marshals payload and stamps id and time
func NewEnvelope(producer, eventType, key string, actor *Actor, message string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: envelopeVersion,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		Key:          key,
		Actor:        actor,
		Message:      message,
		Payload:      raw,
	}, nil
}
