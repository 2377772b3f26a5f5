package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/pkg/util/errorutil"
)

// TicketService is the ticket lifecycle manager: it validates and applies
// mutations, records their history and notifies the affected parties.
type TicketService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	events   EventPublisher
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Events      EventPublisher
	Notifier    Notifier
	Clock       clock.Clock
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
}

// AssigneeUpdate carries a requested assignment. A nil AgentID unassigns.
type AssigneeUpdate struct {
	AgentID *string
}

// TicketPatch lists the fields to change; nil fields are left untouched.
type TicketPatch struct {
	Subject     *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Assignee    *AssigneeUpdate
}

// CommentInput describes a new comment.
type CommentInput struct {
	Content    string
	Visibility domain.CommentVisibility
}

// TicketView is a ticket with the comments visible to the caller.
type TicketView struct {
	Ticket   *domain.Ticket
	Comments []domain.Comment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		users:    deps.UserRepo,
		events:   deps.Events,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
}

// Create opens a ticket for customerID. Priority defaults to MEDIUM.
func (s *TicketService) Create(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, errorutil.NewValidationError("subject and description are required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, errorutil.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		Subject:     subject,
		Description: description,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CustomerID:  customerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created := domain.NewTicketEvent("", &customerID, domain.TicketCreatedMeta{Subject: subject, Priority: priority})
	created.CreatedAt = now
	if err := s.tickets.Create(ctx, ticket, created); err != nil {
		return nil, errorutil.MapStorage(err, "customer", map[string]any{"customer_id": customerID})
	}
	s.events.Publish(ctx, created)

	staff, err := s.users.ListActiveByRoles(ctx, domain.StaffRoles)
	if err != nil {
		s.logger.Warn("list staff for new ticket notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	} else {
		notifyAll(ctx, s.notifier, userIDs(staff), customerID, NotificationInput{
			Type:     domain.NotificationTicketCreated,
			Title:    "New Ticket Created",
			Message:  fmt.Sprintf("A new ticket %q has been created.", ticket.Subject),
			TicketID: &ticket.ID,
		})
	}
	return ticket, nil
}

// Update applies patch on behalf of a staff actor.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	if !actor.Role.IsStaff() {
		return nil, errorutil.NewForbidden("only staff may update tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if actor.Role == domain.RoleAgent && !ticket.IsAssignedTo(actor.ID) && !patch.assignsTo(actor.ID) {
		return nil, errorutil.NewForbidden("agents may only update tickets assigned to them")
	}
	if err := s.validatePatch(ctx, patch); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var changes []domain.EventMetadata

	if patch.Subject != nil {
		ticket.Subject = strings.TrimSpace(*patch.Subject)
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil && *patch.Priority != ticket.Priority {
		changes = append(changes, domain.PriorityChange{From: ticket.Priority, To: *patch.Priority})
		ticket.Priority = *patch.Priority
	}
	statusChanged := false
	if patch.Status != nil {
		if *patch.Status != ticket.Status {
			changes = append(changes, domain.StatusChange{From: ticket.Status, To: *patch.Status})
			ticket.Status = *patch.Status
			statusChanged = true
		}
		switch {
		case ticket.Status.IsTerminal() && ticket.ResolvedAt == nil:
			ticket.ResolvedAt = &now
		case !ticket.Status.IsTerminal():
			ticket.ResolvedAt = nil
		}
	}
	newlyAssigned := false
	if patch.Assignee != nil && !sameID(ticket.AssignedAgentID, patch.Assignee.AgentID) {
		changes = append(changes, domain.AssignmentChange{From: ticket.AssignedAgentID, To: patch.Assignee.AgentID})
		ticket.AssignedAgentID = patch.Assignee.AgentID
		if ticket.AssignedAgentID != nil {
			newlyAssigned = true
			if ticket.FirstRespondedAt == nil {
				ticket.FirstRespondedAt = &now
			}
		}
	}
	ticket.UpdatedAt = now

	history := make([]*domain.TicketEvent, 0, len(changes))
	for _, change := range changes {
		event := domain.NewTicketEvent(ticket.ID, &actor.ID, change)
		event.CreatedAt = now
		history = append(history, event)
	}
	if err := s.tickets.Update(ctx, ticket, history...); err != nil {
		return nil, errorutil.MapStorage(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	s.events.Publish(ctx, history...)

	if statusChanged {
		s.notifier.Notify(ctx, NotificationInput{
			UserID:   ticket.CustomerID,
			Type:     domain.NotificationTicketUpdated,
			Title:    "Ticket Status Updated",
			Message:  fmt.Sprintf("Your ticket %q status has been updated to %s.", ticket.Subject, ticket.Status),
			TicketID: &ticket.ID,
		})
	}
	if newlyAssigned {
		s.notifier.Notify(ctx, NotificationInput{
			UserID:   *ticket.AssignedAgentID,
			Type:     domain.NotificationTicketAssigned,
			Title:    "Ticket Assigned to You",
			Message:  fmt.Sprintf("Ticket %q has been assigned to you.", ticket.Subject),
			TicketID: &ticket.ID,
		})
	}
	if statusChanged && ticket.Status == domain.TicketStatusResolved {
		s.notifier.Notify(ctx, NotificationInput{
			UserID:   ticket.CustomerID,
			Type:     domain.NotificationTicketResolved,
			Title:    "Ticket Resolved",
			Message:  fmt.Sprintf("Your ticket %q has been resolved.", ticket.Subject),
			TicketID: &ticket.ID,
		})
	}
	return ticket, nil
}

// AddComment appends a comment to the ticket thread. A public staff comment
// is the response that stops the response deadline.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID string, input CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errorutil.NewValidationError("comment content is required", nil)
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = domain.CommentPublic
	}
	if visibility != domain.CommentPublic && visibility != domain.CommentInternal {
		return nil, errorutil.NewValidationError("unknown comment visibility", map[string]any{"visibility": visibility})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canViewTicket(actor, ticket) {
		return nil, errorutil.NewForbidden("access to ticket denied")
	}
	if !actor.Role.IsStaff() && visibility != domain.CommentPublic {
		return nil, errorutil.NewForbidden("customers may only post public comments")
	}

	now := s.clock.Now()
	comment := &domain.Comment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Visibility: visibility,
		Content:    content,
		CreatedAt:  now,
	}
	event := domain.NewTicketEvent(ticket.ID, &actor.ID, domain.CommentAddedMeta{CommentID: comment.ID, Visibility: visibility})
	event.CreatedAt = now
	staffResponse := visibility == domain.CommentPublic && actor.Role.IsStaff()
	if err := s.comments.Create(ctx, comment, staffResponse, event); err != nil {
		return nil, errorutil.MapStorage(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	s.events.Publish(ctx, event)
	if visibility != domain.CommentPublic {
		return comment, nil
	}

	if actor.Role.IsStaff() {
		s.notifier.Notify(ctx, NotificationInput{
			UserID:   ticket.CustomerID,
			Type:     domain.NotificationNewComment,
			Title:    "New Comment on Your Ticket",
			Message:  fmt.Sprintf("A new comment has been added to your ticket %q.", ticket.Subject),
			TicketID: &ticket.ID,
		})
		return comment, nil
	}

	in := NotificationInput{
		Type:     domain.NotificationNewComment,
		Title:    "New Comment on Ticket",
		Message:  fmt.Sprintf("The customer commented on ticket %q.", ticket.Subject),
		TicketID: &ticket.ID,
	}
	if ticket.AssignedAgentID != nil {
		in.UserID = *ticket.AssignedAgentID
		s.notifier.Notify(ctx, in)
		return comment, nil
	}
	staff, err := s.users.ListActiveByRoles(ctx, domain.StaffRoles)
	if err != nil {
		s.logger.Warn("list staff for comment notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return comment, nil
	}
	notifyAll(ctx, s.notifier, userIDs(staff), actor.ID, in)
	return comment, nil
}

// Get returns a ticket and the comments the actor may see.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canViewTicket(actor, ticket) {
		return nil, errorutil.NewForbidden("access to ticket denied")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, actor.Role.IsStaff())
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", nil)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return &TicketView{Ticket: ticket, Comments: comments}, nil
}

// List returns the tickets visible to actor: customers their own, agents
// their assignments, management everything.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, errorutil.NewValidationError("unknown status", map[string]any{"status": st})
		}
	}
	filter := repository.TicketFilter{Statuses: statuses, Limit: limit, Offset: offset}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	switch {
	case actor.Role == domain.RoleCustomer:
		filter.CustomerID = &actor.ID
	case actor.Role == domain.RoleAgent:
		filter.AssignedAgentID = &actor.ID
	case !actor.Role.IsManagement():
		return nil, errorutil.NewForbidden("unknown role")
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", nil)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

func (s *TicketService) validatePatch(ctx context.Context, patch TicketPatch) error {
	if patch.Subject != nil && strings.TrimSpace(*patch.Subject) == "" {
		return errorutil.NewValidationError("subject cannot be blank", nil)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return errorutil.NewValidationError("description cannot be blank", nil)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return errorutil.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return errorutil.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	if patch.Assignee == nil || patch.Assignee.AgentID == nil {
		return nil
	}
	agentID := *patch.Assignee.AgentID
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		mapped := errorutil.MapStorage(err, "user", nil)
		if errorutil.IsCode(mapped, errorutil.CodeNotFound) {
			return errorutil.NewValidationError("assignee does not exist", map[string]any{"assigned_agent_id": agentID})
		}
		return mapped
	}
	if !agent.Active || !agent.Role.IsStaff() {
		return errorutil.NewValidationError("assignee must be active staff", map[string]any{"assigned_agent_id": agentID})
	}
	return nil
}

func (p TicketPatch) assignsTo(userID string) bool {
	return p.Assignee != nil && p.Assignee.AgentID != nil && *p.Assignee.AgentID == userID
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func userIDs(users []domain.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
