package dto

import (
	"time"

	"github.com/deskline/helpdesk/internal/domain"
)

// DispatchNotificationRequest payload for a manual notification.
type DispatchNotificationRequest struct {
	UserID   string                  `json:"user_id"`
	Type     domain.NotificationType `json:"type"`
	Title    string                  `json:"title"`
	Message  string                  `json:"message"`
	TicketID *string                 `json:"ticket_id"`
}

// NotificationResponse represents a notification.
type NotificationResponse struct {
	ID        string                    `json:"id"`
	UserID    string                    `json:"user_id"`
	Type      domain.NotificationType   `json:"type"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	TicketID  *string                   `json:"ticket_id"`
	Status    domain.NotificationStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
	ReadAt    *time.Time                `json:"read_at"`
}

// NewNotificationResponse maps a notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		TicketID:  n.TicketID,
		Status:    n.Status,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
