package events

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deskline/helpdesk/internal/domain"
)

// EventType is the routing name of a published event, e.g. ticket.status_changed.
type EventType string

// Meta describes a published event.
type Meta struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	TicketID   string    `json:"ticket_id"`
	Producer   string    `json:"producer,omitempty"`
}

// Envelope is the wire shape shared by every broker.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// TicketEventPayload is the data carried for a ticket history entry.
type TicketEventPayload struct {
	EventID  string                 `json:"event_id"`
	ActorID  *string                `json:"actor_id,omitempty"`
	Type     domain.TicketEventType `json:"type"`
	Metadata domain.EventMetadata   `json:"metadata"`
}

// TicketEventType maps a ticket history type to its routing name.
func TicketEventType(t domain.TicketEventType) EventType {
	return EventType("ticket." + strings.ToLower(string(t)))
}

// NewTicketEnvelope wraps a stored ticket event for publication.
func NewTicketEnvelope(event *domain.TicketEvent, producer string) Envelope {
	occurred := event.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return Envelope{
		Meta: Meta{
			ID:         uuid.NewString(),
			Type:       TicketEventType(event.Type),
			OccurredAt: occurred,
			TicketID:   event.TicketID,
			Producer:   producer,
		},
		Data: TicketEventPayload{
			EventID:  event.ID,
			ActorID:  event.ActorID,
			Type:     event.Type,
			Metadata: event.Metadata,
		},
	}
}
