package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// TicketEventRepository reads the append-only ticket history. Events are
// written by the ticket and comment repositories in the same transaction
// as the row they describe.
type TicketEventRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error)
}

type ticketEventRepository struct {
	pool *pgxpool.Pool
}

// NewTicketEventRepository builds repository.
func NewTicketEventRepository(pool *pgxpool.Pool) TicketEventRepository {
	return &ticketEventRepository{pool: pool}
}

func insertTicketEvent(ctx context.Context, tx pgx.Tx, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, actor_id, event_type, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	raw, err := domain.EncodeEventMetadata(event.Metadata)
	if err != nil {
		return err
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return tx.QueryRow(ctx, query,
		event.TicketID,
		event.ActorID,
		event.Type,
		raw,
		createdAt,
	).Scan(&event.ID, &event.CreatedAt)
}

// insertHistory stamps every event with ticketID and stores it inside tx.
func insertHistory(ctx context.Context, tx pgx.Tx, ticketID string, history []*domain.TicketEvent) error {
	for _, event := range history {
		event.TicketID = ticketID
		if err := insertTicketEvent(ctx, tx, event); err != nil {
			return fmt.Errorf("append %s event: %w", event.Type, err)
		}
	}
	return nil
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, ticket_id, actor_id, event_type, metadata, created_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var (
			event domain.TicketEvent
			raw   []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.ActorID,
			&event.Type,
			&raw,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		meta, err := domain.DecodeEventMetadata(event.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		event.Metadata = meta
		result = append(result, event)
	}
	return result, rows.Err()
}
