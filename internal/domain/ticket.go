package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusWaiting    TicketStatus = "WAITING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TerminalStatuses are exempt from SLA evaluation.
var TerminalStatuses = []TicketStatus{TicketStatusResolved, TicketStatusClosed}

// IsTerminal reports whether the status is RESOLVED or CLOSED.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaiting, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ParseStatus normalizes user input such as "in_progress" into a TicketStatus.
func ParseStatus(raw string) (TicketStatus, bool) {
	s := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// ParsePriority normalizes user input such as "urgent" into a TicketPriority.
func ParsePriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	return p, p.Valid()
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	Subject          string
	Description      string
	Priority         TicketPriority
	Status           TicketStatus
	CustomerID       string
	AssignedAgentID  *string
	SLABreached      bool
	FirstRespondedAt *time.Time
	// PublicResponseAt is the first public staff comment. Assignment alone
	// never sets it.
	PublicResponseAt *time.Time
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsAssignedTo reports whether the ticket is currently assigned to userID.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedAgentID != nil && *t.AssignedAgentID == userID
}

// Responded reports whether staff has answered the customer with a public comment.
func (t *Ticket) Responded() bool {
	return t.PublicResponseAt != nil
}
