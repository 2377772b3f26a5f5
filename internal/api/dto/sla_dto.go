package dto

import (
	"time"

	"github.com/deskline/helpdesk/internal/domain"
)

// UpdateSLAPolicyRequest payload.
type UpdateSLAPolicyRequest struct {
	ResponseTimeMinutes   int `json:"response_time_minutes"`
	ResolutionTimeMinutes int `json:"resolution_time_minutes"`
}

// SLAPolicyResponse represents one policy.
type SLAPolicyResponse struct {
	Priority              domain.TicketPriority `json:"priority"`
	ResponseTimeMinutes   int                   `json:"response_time_minutes"`
	ResolutionTimeMinutes int                   `json:"resolution_time_minutes"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// NewSLAPolicyResponse maps a policy.
func NewSLAPolicyResponse(p *domain.SLAPolicy) SLAPolicyResponse {
	return SLAPolicyResponse{
		Priority:              p.Priority,
		ResponseTimeMinutes:   p.ResponseTimeMinutes,
		ResolutionTimeMinutes: p.ResolutionTimeMinutes,
		UpdatedAt:             p.UpdatedAt,
	}
}
