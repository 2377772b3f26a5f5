package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/events"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/pkg/util/errorutil"
)

// EventPublisher forwards history entries that a repository write has
// already committed.
type EventPublisher interface {
	Publish(ctx context.Context, history ...*domain.TicketEvent)
}

// EventLog reads the append-only ticket history and publishes committed
// events on the dispatcher for broker forwarding.
type EventLog struct {
	events     repository.TicketEventRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	producer   string
	logger     *zap.Logger
}

// EventLogDependencies bundles collaborators for the event log.
type EventLogDependencies struct {
	EventRepo  repository.TicketEventRepository
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Producer   string
	Logger     *zap.Logger
}

// NewEventLog constructs the event log.
func NewEventLog(deps EventLogDependencies) *EventLog {
	return &EventLog{
		events:     deps.EventRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		producer:   deps.Producer,
		logger:     deps.Logger,
	}
}

// Publish hands committed events to the dispatcher. Broker failures are
// handled by the subscribers and never reach the caller.
func (l *EventLog) Publish(ctx context.Context, history ...*domain.TicketEvent) {
	if l.dispatcher == nil {
		return
	}
	for _, event := range history {
		l.dispatcher.Publish(ctx, events.NewTicketEnvelope(event, l.producer))
		l.logger.Debug("ticket event published",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)))
	}
}

// List returns a ticket's history oldest first.
func (l *EventLog) List(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketEvent, error) {
	ticket, err := l.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canViewTicket(actor, ticket) {
		return nil, errorutil.NewForbidden("access to ticket denied")
	}
	list, err := l.events.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapStorage(err, "ticket", nil)
	}
	if list == nil {
		list = []domain.TicketEvent{}
	}
	return list, nil
}
