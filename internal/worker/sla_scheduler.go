package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/service"
)

// SLALockKey guards evaluation so only one replica runs a pass at a time.
const SLALockKey = "sla:evaluator:lock"

// Evaluator runs one SLA evaluation pass.
type Evaluator interface {
	Evaluate(ctx context.Context) service.EvaluationReport
}

// Locker takes a short-lived lock shared by every replica.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
}

// SLAScheduler runs the evaluator on a fixed cadence.
type SLAScheduler struct {
	evaluator Evaluator
	lock      Locker
	interval  time.Duration
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewSLAScheduler builds a scheduler. A nil lock evaluates on every tick.
func NewSLAScheduler(evaluator Evaluator, lock Locker, interval, lockTTL time.Duration, logger *zap.Logger) *SLAScheduler {
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &SLAScheduler{
		evaluator: evaluator,
		lock:      lock,
		interval:  interval,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

// Run evaluates immediately and then on every tick until ctx is cancelled.
func (s *SLAScheduler) Run(ctx context.Context) {
	s.logger.Info("sla scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("sla scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce evaluates if this replica wins the lock. When Redis is unreachable
// the pass runs anyway, since evaluation is idempotent per ticket.
func (s *SLAScheduler) RunOnce(ctx context.Context) (service.EvaluationReport, bool) {
	if ctx.Err() != nil {
		return service.EvaluationReport{}, false
	}
	if s.lock != nil {
		release, acquired, err := s.lock.TryAcquire(ctx, SLALockKey, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("sla lock unavailable, evaluating locally", zap.Error(err))
		case !acquired:
			s.logger.Debug("sla pass skipped, lock held by another replica")
			return service.EvaluationReport{}, false
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("sla lock release failed", zap.Error(err))
				}
			}()
		}
	}
	return s.evaluator.Evaluate(ctx), true
}
