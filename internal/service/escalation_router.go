package service

import (
	"context"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
)

// RecipientResolver decides who hears about a breach.
type RecipientResolver interface {
	RecipientsFor(ctx context.Context, ticket *domain.Ticket) ([]string, error)
}

// EscalationRouter routes every breach to the assigned agent plus the whole
// management roster, regardless of priority.
type EscalationRouter struct {
	users repository.UserRepository
}

// NewEscalationRouter constructs the router.
func NewEscalationRouter(users repository.UserRepository) *EscalationRouter {
	return &EscalationRouter{users: users}
}

// RecipientsFor returns deduplicated user ids, assigned agent first.
func (r *EscalationRouter) RecipientsFor(ctx context.Context, ticket *domain.Ticket) ([]string, error) {
	managers, err := r.users.ListActiveByRoles(ctx, domain.ManagementRoles)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(managers)+1)
	recipients := make([]string, 0, len(managers)+1)
	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	if ticket.AssignedAgentID != nil {
		add(*ticket.AssignedAgentID)
	}
	for _, m := range managers {
		add(m.ID)
	}
	return recipients, nil
}
