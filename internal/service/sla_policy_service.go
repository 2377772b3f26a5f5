package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/pkg/util/errorutil"
)

// SLAThresholds are the editable values of a policy.
type SLAThresholds struct {
	ResponseTimeMinutes   int
	ResolutionTimeMinutes int
}

// SLAPolicyService exposes per-priority SLA thresholds.
type SLAPolicyService struct {
	policies repository.SLAPolicyRepository
	logger   *zap.Logger
}

// NewSLAPolicyService constructs the service.
func NewSLAPolicyService(policies repository.SLAPolicyRepository, logger *zap.Logger) *SLAPolicyService {
	return &SLAPolicyService{policies: policies, logger: logger}
}

// Get returns the policy for priority.
func (s *SLAPolicyService) Get(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	if !priority.Valid() {
		return nil, errorutil.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	policy, err := s.policies.Get(ctx, priority)
	if err != nil {
		return nil, errorutil.MapStorage(err, "sla policy", map[string]any{"priority": priority})
	}
	return policy, nil
}

// List returns every defined policy ordered from LOW to URGENT.
func (s *SLAPolicyService) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, errorutil.MapStorage(err, "sla policy", nil)
	}
	return policies, nil
}

// Update replaces, or defines, the thresholds of priority. Only ADMIN and
// SUPER_ADMIN may edit policies.
func (s *SLAPolicyService) Update(ctx context.Context, actor domain.Actor, priority domain.TicketPriority, in SLAThresholds) (*domain.SLAPolicy, error) {
	if !actor.Role.IsAdmin() {
		return nil, errorutil.NewForbidden("only administrators may edit SLA policies")
	}
	if !priority.Valid() {
		return nil, errorutil.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if in.ResponseTimeMinutes <= 0 || in.ResolutionTimeMinutes <= 0 {
		return nil, errorutil.NewValidationError("thresholds must be positive", map[string]any{
			"response_time_minutes":   in.ResponseTimeMinutes,
			"resolution_time_minutes": in.ResolutionTimeMinutes,
		})
	}
	if in.ResponseTimeMinutes > domain.MaxThresholdMinutes || in.ResolutionTimeMinutes > domain.MaxThresholdMinutes {
		return nil, errorutil.NewValidationError("thresholds cannot exceed one year", map[string]any{
			"max_minutes": domain.MaxThresholdMinutes,
		})
	}
	if in.ResponseTimeMinutes > in.ResolutionTimeMinutes {
		return nil, errorutil.NewValidationError("response time cannot exceed resolution time", nil)
	}

	policy := &domain.SLAPolicy{
		Priority:              priority,
		ResponseTimeMinutes:   in.ResponseTimeMinutes,
		ResolutionTimeMinutes: in.ResolutionTimeMinutes,
	}
	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, errorutil.MapStorage(err, "sla policy", nil)
	}
	s.logger.Info("sla policy updated",
		zap.String("priority", string(priority)),
		zap.String("actor_id", actor.ID),
		zap.Int("response_minutes", in.ResponseTimeMinutes),
		zap.Int("resolution_minutes", in.ResolutionTimeMinutes))
	return policy, nil
}
