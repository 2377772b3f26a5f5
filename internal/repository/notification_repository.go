package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	Status *domain.NotificationStatus
	Limit  int
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	// Create stores the notification and, when outbox is non-nil, its email
	// outbox entry in the same transaction.
	Create(ctx context.Context, n *domain.Notification, outbox *domain.EmailOutboxEntry) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	List(ctx context.Context, userID string, filter NotificationFilter) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification, outbox *domain.EmailOutboxEntry) error {
	const insertNotification = `
        INSERT INTO notifications (user_id, type, title, message, ticket_id, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	const insertOutbox = `
        INSERT INTO email_outbox (notification_id, user_id, subject, body, status, next_attempt_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$6)
        RETURNING id, created_at`

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertNotification,
			n.UserID,
			n.Type,
			n.Title,
			n.Message,
			n.TicketID,
			n.Status,
			createdAt,
		).Scan(&n.ID, &n.CreatedAt); err != nil {
			return err
		}
		if outbox == nil {
			return nil
		}
		outbox.NotificationID = n.ID
		outbox.UserID = n.UserID
		outbox.Status = domain.OutboxPending
		outbox.NextAttemptAt = n.CreatedAt
		return tx.QueryRow(ctx, insertOutbox,
			outbox.NotificationID,
			outbox.UserID,
			outbox.Subject,
			outbox.Body,
			outbox.Status,
			outbox.NextAttemptAt,
		).Scan(&outbox.ID, &outbox.CreatedAt)
	})
}

const notificationColumns = `id, user_id, type, title, message, ticket_id, status, created_at, read_at`

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE notifications SET status='READ', read_at=$1
        WHERE id=$2 AND status='UNREAD'`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	const query = `
        UPDATE notifications SET status='READ', read_at=$1
        WHERE user_id=$2 AND status='UNREAD'`
	cmd, err := r.pool.Exec(ctx, query, at, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, filter NotificationFilter) ([]domain.Notification, error) {
	args := []any{userID}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id=$1`
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND status='UNREAD'`, userID).Scan(&count)
	return count, err
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.TicketID,
		&n.Status,
		&n.CreatedAt,
		&n.ReadAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
