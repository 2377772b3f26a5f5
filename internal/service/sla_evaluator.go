package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/observability"
	"github.com/deskline/helpdesk/internal/repository"
)

// EvaluationReport summarizes one evaluator pass.
type EvaluationReport struct {
	EvaluatedAt time.Time `json:"evaluated_at"`
	DurationMS  int64     `json:"duration_ms"`
	Scanned     int       `json:"scanned"`
	Skipped     int       `json:"skipped"`
	Breached    int       `json:"breached"`
	Recovered   int       `json:"recovered"`
	Escalations int       `json:"escalations"`
	Failures    int       `json:"failures"`
}

// SLAEvaluator keeps sla_breached current for every non-terminal ticket and
// escalates exactly once per false to true transition.
type SLAEvaluator struct {
	tickets  repository.TicketRepository
	policies repository.SLAPolicyRepository
	router   RecipientResolver
	notifier Notifier
	events   EventPublisher
	clock    clock.Clock
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// SLAEvaluatorDependencies bundles collaborators for the evaluator.
type SLAEvaluatorDependencies struct {
	TicketRepo repository.TicketRepository
	PolicyRepo repository.SLAPolicyRepository
	Router     RecipientResolver
	Notifier   Notifier
	Events     EventPublisher
	Clock      clock.Clock
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewSLAEvaluator constructs the evaluator.
func NewSLAEvaluator(deps SLAEvaluatorDependencies) *SLAEvaluator {
	return &SLAEvaluator{
		tickets:  deps.TicketRepo,
		policies: deps.PolicyRepo,
		router:   deps.Router,
		notifier: deps.Notifier,
		events:   deps.Events,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// Evaluate runs one pass over all non-terminal tickets. It never fails:
// infrastructure errors are logged and counted in the report.
func (e *SLAEvaluator) Evaluate(ctx context.Context) EvaluationReport {
	started := time.Now()
	now := e.clock.Now()
	report := EvaluationReport{EvaluatedAt: now}
	defer func() {
		elapsed := time.Since(started)
		report.DurationMS = elapsed.Milliseconds()
		e.metrics.RecordSLAPass(elapsed, report.Breached, report.Recovered, report.Escalations, report.Failures)
	}()

	tickets, err := e.tickets.ListNonTerminal(ctx)
	if err != nil {
		e.logger.Error("sla evaluation: list tickets failed", zap.Error(err))
		report.Failures++
		return report
	}
	policies, err := e.policies.List(ctx)
	if err != nil {
		e.logger.Error("sla evaluation: load policies failed", zap.Error(err))
		report.Failures++
		return report
	}
	byPriority := make(map[domain.TicketPriority]domain.SLAPolicy, len(policies))
	for _, p := range policies {
		byPriority[p.Priority] = p
	}

	for i := range tickets {
		ticket := &tickets[i]
		if ticket.Status.IsTerminal() {
			continue
		}
		report.Scanned++
		policy, ok := byPriority[ticket.Priority]
		if !ok {
			report.Skipped++
			continue
		}
		if err := e.evaluateTicket(ctx, ticket, policy, now, &report); err != nil {
			report.Failures++
			e.logger.Warn("sla evaluation failed for ticket",
				zap.String("ticket_id", ticket.ID),
				zap.String("priority", string(ticket.Priority)),
				zap.Error(err))
		}
	}

	if report.Breached > 0 || report.Recovered > 0 || report.Failures > 0 {
		e.logger.Info("sla evaluation pass",
			zap.Int("scanned", report.Scanned),
			zap.Int("breached", report.Breached),
			zap.Int("recovered", report.Recovered),
			zap.Int("escalations", report.Escalations),
			zap.Int("failures", report.Failures))
	}
	return report
}

func (e *SLAEvaluator) evaluateTicket(ctx context.Context, ticket *domain.Ticket, policy domain.SLAPolicy, now time.Time, report *EvaluationReport) error {
	breached := policy.Breached(ticket, now)
	if breached == ticket.SLABreached {
		return nil
	}
	if !breached {
		if err := e.tickets.UpdateSLABreached(ctx, ticket.ID, false); err != nil {
			return fmt.Errorf("clear breach: %w", err)
		}
		report.Recovered++
		return nil
	}

	// Recipients are resolved before the flag is persisted so a router
	// failure leaves the ticket to be retried on the next pass.
	recipients, err := e.router.RecipientsFor(ctx, ticket)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	event := domain.NewTicketEvent(ticket.ID, nil, domain.SLAEscalation{
		Priority:        ticket.Priority,
		AssignedAgentID: ticket.AssignedAgentID,
		Recipients:      len(recipients),
	})
	event.CreatedAt = now
	if err := e.tickets.UpdateSLABreached(ctx, ticket.ID, true, event); err != nil {
		return fmt.Errorf("set breach: %w", err)
	}
	ticket.SLABreached = true
	report.Breached++
	e.events.Publish(ctx, event)

	ticketID := ticket.ID
	for _, userID := range recipients {
		in := NotificationInput{
			UserID:   userID,
			Type:     domain.NotificationSLABreached,
			Title:    "SLA Escalation",
			Message:  fmt.Sprintf("Ticket %q breached SLA and was escalated for attention.", ticket.Subject),
			TicketID: &ticketID,
		}
		if ticket.IsAssignedTo(userID) {
			in.Title = "SLA Breached"
			in.Message = fmt.Sprintf("Ticket %q has breached its SLA deadline.", ticket.Subject)
		}
		if e.notifier.Notify(ctx, in) {
			report.Escalations++
		}
	}
	return nil
}
