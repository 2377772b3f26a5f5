package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// SLAPolicyRepository persists per-priority SLA thresholds.
type SLAPolicyRepository interface {
	Get(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	List(ctx context.Context) ([]domain.SLAPolicy, error)
	Upsert(ctx context.Context, policy *domain.SLAPolicy) error
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository builds repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) Get(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT priority, response_time_minutes, resolution_time_minutes, updated_at
        FROM sla_policies WHERE priority=$1`
	return scanPolicy(r.pool.QueryRow(ctx, query, priority))
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT priority, response_time_minutes, resolution_time_minutes, updated_at
        FROM sla_policies
        ORDER BY CASE priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 ELSE 4 END`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func (r *slaPolicyRepository) Upsert(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (priority, response_time_minutes, resolution_time_minutes, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (priority) DO UPDATE
            SET response_time_minutes=EXCLUDED.response_time_minutes,
                resolution_time_minutes=EXCLUDED.resolution_time_minutes,
                updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Priority,
		policy.ResponseTimeMinutes,
		policy.ResolutionTimeMinutes,
	).Scan(&policy.UpdatedAt)
}

func scanPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	if err := row.Scan(
		&policy.Priority,
		&policy.ResponseTimeMinutes,
		&policy.ResolutionTimeMinutes,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}
