package dto

import (
	"encoding/json"
	"time"

	"github.com/deskline/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// NullableString distinguishes an absent JSON field from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records that the field was present.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// UpdateTicketRequest payload. Send "assigned_agent_id": null to unassign.
type UpdateTicketRequest struct {
	Subject         *string                `json:"subject"`
	Description     *string                `json:"description"`
	Priority        *domain.TicketPriority `json:"priority"`
	Status          *domain.TicketStatus   `json:"status"`
	AssignedAgentID NullableString         `json:"assigned_agent_id"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID               string                `json:"id"`
	Subject          string                `json:"subject"`
	Description      string                `json:"description"`
	Priority         domain.TicketPriority `json:"priority"`
	Status           domain.TicketStatus   `json:"status"`
	CustomerID       string                `json:"customer_id"`
	AssignedAgentID  *string               `json:"assigned_agent_id"`
	SLABreached      bool                  `json:"sla_breached"`
	FirstRespondedAt *time.Time            `json:"first_responded_at"`
	ResolvedAt       *time.Time            `json:"resolved_at"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketDetailResponse is a ticket with its visible comments.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string                   `json:"content"`
	Visibility domain.CommentVisibility `json:"visibility"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID         string                   `json:"id"`
	TicketID   string                   `json:"ticket_id"`
	AuthorID   string                   `json:"author_id"`
	Visibility domain.CommentVisibility `json:"visibility"`
	Content    string                   `json:"content"`
	CreatedAt  time.Time                `json:"created_at"`
}

// TicketEventResponse represents a history entry.
type TicketEventResponse struct {
	ID        string                 `json:"id"`
	TicketID  string                 `json:"ticket_id"`
	ActorID   *string                `json:"actor_id"`
	Type      domain.TicketEventType `json:"type"`
	Metadata  domain.EventMetadata   `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		Subject:          t.Subject,
		Description:      t.Description,
		Priority:         t.Priority,
		Status:           t.Status,
		CustomerID:       t.CustomerID,
		AssignedAgentID:  t.AssignedAgentID,
		SLABreached:      t.SLABreached,
		FirstRespondedAt: t.FirstRespondedAt,
		ResolvedAt:       t.ResolvedAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		Visibility: c.Visibility,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}
}

// NewTicketDetailResponse maps a ticket and its comments.
func NewTicketDetailResponse(t *domain.Ticket, comments []domain.Comment) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(t),
		Comments:       make([]CommentResponse, 0, len(comments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&comments[i]))
	}
	return resp
}

// NewTicketEventResponses maps a ticket history.
func NewTicketEventResponses(events []domain.TicketEvent) []TicketEventResponse {
	resp := make([]TicketEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, TicketEventResponse{
			ID:        e.ID,
			TicketID:  e.TicketID,
			ActorID:   e.ActorID,
			Type:      e.Type,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}
