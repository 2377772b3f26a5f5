package domain

import "time"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTicketCreated  NotificationType = "TICKET_CREATED"
	NotificationTicketUpdated  NotificationType = "TICKET_UPDATED"
	NotificationTicketAssigned NotificationType = "TICKET_ASSIGNED"
	NotificationTicketResolved NotificationType = "TICKET_RESOLVED"
	NotificationNewComment     NotificationType = "NEW_COMMENT"
	NotificationSLABreached    NotificationType = "SLA_BREACHED"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTicketCreated, NotificationTicketUpdated, NotificationTicketAssigned,
		NotificationTicketResolved, NotificationNewComment, NotificationSLABreached:
		return true
	}
	return false
}

// NotificationStatus is the read state of a notification.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "UNREAD"
	NotificationRead   NotificationStatus = "READ"
)

// Notification is a per-user in-app message.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	TicketID  *string
	Status    NotificationStatus
	CreatedAt time.Time
	ReadAt    *time.Time
}

// OutboxStatus tracks email delivery for an outbox entry.
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
	OutboxFailed  OutboxStatus = "FAILED"
)

// EmailOutboxEntry is one queued email mirroring a notification. Recipient
// is resolved from the user's address when the entry is claimed for delivery.
type EmailOutboxEntry struct {
	ID             string
	NotificationID string
	UserID         string
	Recipient      string
	Subject        string
	Body           string
	Status         OutboxStatus
	Attempts       int
	NextAttemptAt  time.Time
	LastError      *string
	CreatedAt      time.Time
	SentAt         *time.Time
}
