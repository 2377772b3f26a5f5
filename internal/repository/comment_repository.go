package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	// Create stores comment and history in one transaction. When
	// staffResponse is true it also stamps the ticket's first response
	// columns if they are still empty.
	Create(ctx context.Context, comment *domain.Comment, staffResponse bool, history ...*domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment, staffResponse bool, history ...*domain.TicketEvent) error {
	const insertComment = `
        INSERT INTO comments (id, ticket_id, author_id, visibility, content, created_at)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()),$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	const markResponse = `
        UPDATE tickets SET public_response_at=COALESCE(public_response_at, $1),
            first_responded_at=COALESCE(first_responded_at, $1), updated_at=GREATEST(updated_at, $1)
        WHERE id=$2`
	createdAt := comment.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertComment,
			comment.ID,
			comment.TicketID,
			comment.AuthorID,
			comment.Visibility,
			comment.Content,
			createdAt,
		).Scan(&comment.ID, &comment.CreatedAt); err != nil {
			return err
		}
		if staffResponse {
			cmd, err := tx.Exec(ctx, markResponse, comment.CreatedAt, comment.TicketID)
			if err != nil {
				return err
			}
			if cmd.RowsAffected() == 0 {
				return pgx.ErrNoRows
			}
		}
		return insertHistory(ctx, tx, comment.TicketID, history)
	})
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	query := `
        SELECT id, ticket_id, author_id, visibility, content, created_at
        FROM comments WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND visibility = 'PUBLIC'`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Visibility,
			&comment.Content,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
