package service

import "github.com/deskline/helpdesk/internal/domain"

// canViewTicket applies the read rules shared by tickets and their history:
// customers see their own tickets, agents the tickets assigned to them, and
// management every ticket.
func canViewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	switch {
	case actor.Role.IsManagement():
		return true
	case actor.Role == domain.RoleAgent:
		return ticket.IsAssignedTo(actor.ID)
	case actor.Role == domain.RoleCustomer:
		return ticket.CustomerID == actor.ID
	}
	return false
}
