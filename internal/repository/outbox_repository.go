package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// OutboxRepository drives email delivery state.
type OutboxRepository interface {
	// ClaimDue leases up to limit pending entries whose next attempt is due,
	// pushing their next_attempt_at to leaseUntil so other workers skip them.
	ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.EmailOutboxEntry, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository builds repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.EmailOutboxEntry, error) {
	const query = `
        WITH due AS (
            SELECT id FROM email_outbox
            WHERE status='PENDING' AND next_attempt_at <= $1
            ORDER BY next_attempt_at ASC
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        ), claimed AS (
            UPDATE email_outbox o SET next_attempt_at=$3
            FROM due WHERE o.id = due.id
            RETURNING o.id, o.notification_id, o.user_id, o.subject, o.body, o.status,
                      o.attempts, o.next_attempt_at, o.last_error, o.created_at, o.sent_at
        )
        SELECT c.id, c.notification_id, c.user_id, u.email, c.subject, c.body, c.status,
               c.attempts, c.next_attempt_at, c.last_error, c.created_at, c.sent_at
        FROM claimed c JOIN users u ON u.id = c.user_id`
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, query, now, limit, leaseUntil)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailOutboxEntry
	for rows.Next() {
		var entry domain.EmailOutboxEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.NotificationID,
			&entry.UserID,
			&entry.Recipient,
			&entry.Subject,
			&entry.Body,
			&entry.Status,
			&entry.Attempts,
			&entry.NextAttemptAt,
			&entry.LastError,
			&entry.CreatedAt,
			&entry.SentAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE email_outbox SET status='SENT', attempts=attempts+1, sent_at=$1, last_error=NULL
        WHERE id=$2`
	return r.exec(ctx, query, at, id)
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	const query = `
        UPDATE email_outbox SET attempts=$1, next_attempt_at=$2, last_error=$3
        WHERE id=$4`
	return r.exec(ctx, query, attempts, next, lastErr, id)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	const query = `
        UPDATE email_outbox SET status='FAILED', attempts=$1, last_error=$2
        WHERE id=$3`
	return r.exec(ctx, query, attempts, lastErr, id)
}

func (r *outboxRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
