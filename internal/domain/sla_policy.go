package domain

import "time"

// MaxThresholdMinutes caps policy thresholds at one year.
const MaxThresholdMinutes = 366 * 24 * 60

// SLAPolicy holds the response and resolution thresholds for one priority.
type SLAPolicy struct {
	Priority              TicketPriority
	ResponseTimeMinutes   int
	ResolutionTimeMinutes int
	UpdatedAt             time.Time
}

// ResponseDeadline is the latest time a first response is due for a ticket created at createdAt.
func (p SLAPolicy) ResponseDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(time.Duration(p.ResponseTimeMinutes) * time.Minute)
}

// ResolutionDeadline is the latest time the ticket must be resolved.
func (p SLAPolicy) ResolutionDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(time.Duration(p.ResolutionTimeMinutes) * time.Minute)
}

// Breached reports whether t has missed either deadline at now. The response
// deadline only counts until staff posts a public comment.
func (p SLAPolicy) Breached(t *Ticket, now time.Time) bool {
	if !t.Responded() && now.After(p.ResponseDeadline(t.CreatedAt)) {
		return true
	}
	return now.After(p.ResolutionDeadline(t.CreatedAt))
}
