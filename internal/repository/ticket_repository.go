package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID      *string
	AssignedAgentID *string
	Statuses        []domain.TicketStatus
	ExcludeStatuses []domain.TicketStatus
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. Writes that take a
// history store those events in the same transaction as the row change.
// Update never touches sla_breached or public_response_at; only
// UpdateSLABreached writes the former and comment creation the latter.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, history ...*domain.TicketEvent) error
	Update(ctx context.Context, ticket *domain.Ticket, history ...*domain.TicketEvent) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListNonTerminal(ctx context.Context) ([]domain.Ticket, error)
	UpdateSLABreached(ctx context.Context, id string, breached bool, history ...*domain.TicketEvent) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, subject, description, priority, status, customer_id, assigned_agent_id,
               sla_breached, first_responded_at, public_response_at, resolved_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, history ...*domain.TicketEvent) error {
	const query = `
        INSERT INTO tickets (subject, description, priority, status, customer_id, assigned_agent_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
        RETURNING id, created_at, updated_at`
	createdAt := ticket.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			ticket.Subject,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.CustomerID,
			ticket.AssignedAgentID,
			createdAt,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}
		return insertHistory(ctx, tx, ticket.ID, history)
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, history ...*domain.TicketEvent) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, priority=$3, status=$4, assigned_agent_id=$5,
            first_responded_at=COALESCE(first_responded_at, $6), resolved_at=$7, updated_at=$8
        WHERE id=$9`
	updatedAt := ticket.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query,
			ticket.Subject,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.AssignedAgentID,
			ticket.FirstRespondedAt,
			ticket.ResolvedAt,
			updatedAt,
			ticket.ID,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return insertHistory(ctx, tx, ticket.ID, history)
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ListNonTerminal(ctx context.Context) ([]domain.Ticket, error) {
	return r.List(ctx, TicketFilter{ExcludeStatuses: domain.TerminalStatuses, Limit: -1})
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusNames(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.ExcludeStatuses) > 0 {
		args = append(args, statusNames(filter.ExcludeStatuses))
		clauses = append(clauses, fmt.Sprintf("NOT (status = ANY($%d))", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at ASC`, base, strings.Join(clauses, " AND "))
	// A negative limit lists everything; the evaluator needs the full set.
	if filter.Limit >= 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = 20
		}
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query = fmt.Sprintf(`%s LIMIT %d OFFSET %d`, query, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateSLABreached(ctx context.Context, id string, breached bool, history ...*domain.TicketEvent) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `UPDATE tickets SET sla_breached=$1 WHERE id=$2`, breached, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return insertHistory(ctx, tx, id, history)
	})
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CustomerID,
		&ticket.AssignedAgentID,
		&ticket.SLABreached,
		&ticket.FirstRespondedAt,
		&ticket.PublicResponseAt,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func statusNames(statuses []domain.TicketStatus) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
