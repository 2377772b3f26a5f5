package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TicketEventType enumerates ticket history entries.
type TicketEventType string

const (
	EventTicketCreated   TicketEventType = "TICKET_CREATED"
	EventStatusChanged   TicketEventType = "STATUS_CHANGED"
	EventPriorityChanged TicketEventType = "PRIORITY_CHANGED"
	EventAssigned        TicketEventType = "ASSIGNED"
	EventUnassigned      TicketEventType = "UNASSIGNED"
	EventCommentAdded    TicketEventType = "COMMENT_ADDED"
	EventAttachmentAdded TicketEventType = "ATTACHMENT_ADDED"
	EventSLAEscalated    TicketEventType = "SLA_ESCALATED"
)

// TicketEvent is an immutable history entry. A nil ActorID marks a
// system-generated event.
type TicketEvent struct {
	ID        string
	TicketID  string
	ActorID   *string
	Type      TicketEventType
	Metadata  EventMetadata
	CreatedAt time.Time
}

// NewTicketEvent builds an event whose type is derived from its metadata.
func NewTicketEvent(ticketID string, actorID *string, meta EventMetadata) *TicketEvent {
	return &TicketEvent{
		TicketID: ticketID,
		ActorID:  actorID,
		Type:     meta.EventType(),
		Metadata: meta,
	}
}

// EventMetadata is the typed payload of a TicketEvent; each implementation
// belongs to exactly one event type (AssignmentChange covers both
// ASSIGNED and UNASSIGNED).
type EventMetadata interface {
	EventType() TicketEventType
}

// TicketCreatedMeta records the initial subject and priority.
type TicketCreatedMeta struct {
	Subject  string         `json:"subject"`
	Priority TicketPriority `json:"priority"`
}

func (TicketCreatedMeta) EventType() TicketEventType { return EventTicketCreated }

// StatusChange records a status transition.
type StatusChange struct {
	From TicketStatus `json:"from"`
	To   TicketStatus `json:"to"`
}

func (StatusChange) EventType() TicketEventType { return EventStatusChanged }

// PriorityChange records a priority transition.
type PriorityChange struct {
	From TicketPriority `json:"from"`
	To   TicketPriority `json:"to"`
}

func (PriorityChange) EventType() TicketEventType { return EventPriorityChanged }

// AssignmentChange records an assignee transition.
type AssignmentChange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

func (a AssignmentChange) EventType() TicketEventType {
	if a.To == nil {
		return EventUnassigned
	}
	return EventAssigned
}

// CommentAddedMeta records a new comment.
type CommentAddedMeta struct {
	CommentID  string            `json:"comment_id"`
	Visibility CommentVisibility `json:"visibility"`
}

func (CommentAddedMeta) EventType() TicketEventType { return EventCommentAdded }

// AttachmentAddedMeta records an uploaded attachment.
type AttachmentAddedMeta struct {
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
}

func (AttachmentAddedMeta) EventType() TicketEventType { return EventAttachmentAdded }

// SLAEscalation records a new breach and who was told about it.
type SLAEscalation struct {
	Priority        TicketPriority `json:"priority"`
	AssignedAgentID *string        `json:"assigned_agent_id"`
	Recipients      int            `json:"recipients"`
}

func (SLAEscalation) EventType() TicketEventType { return EventSLAEscalated }

// EncodeEventMetadata serializes metadata for storage.
func EncodeEventMetadata(meta EventMetadata) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

// DecodeEventMetadata restores the typed metadata stored for an event of type t.
func DecodeEventMetadata(t TicketEventType, raw []byte) (EventMetadata, error) {
	var meta EventMetadata
	switch t {
	case EventTicketCreated:
		meta = &TicketCreatedMeta{}
	case EventStatusChanged:
		meta = &StatusChange{}
	case EventPriorityChanged:
		meta = &PriorityChange{}
	case EventAssigned, EventUnassigned:
		meta = &AssignmentChange{}
	case EventCommentAdded:
		meta = &CommentAddedMeta{}
	case EventAttachmentAdded:
		meta = &AttachmentAddedMeta{}
	case EventSLAEscalated:
		meta = &SLAEscalation{}
	default:
		return nil, fmt.Errorf("unknown ticket event type %q", t)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, meta); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", t, err)
		}
	}
	return deref(meta), nil
}

func deref(meta EventMetadata) EventMetadata {
	switch m := meta.(type) {
	case *TicketCreatedMeta:
		return *m
	case *StatusChange:
		return *m
	case *PriorityChange:
		return *m
	case *AssignmentChange:
		return *m
	case *CommentAddedMeta:
		return *m
	case *AttachmentAddedMeta:
		return *m
	case *SLAEscalation:
		return *m
	}
	return meta
}
