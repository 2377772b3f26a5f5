package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/mail"
	"github.com/deskline/helpdesk/internal/observability"
	"github.com/deskline/helpdesk/internal/repository"
)

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
	outboxLease = 5 * time.Minute
)

// Backoff returns the delay before retry number attempts (1-based): 30s
// doubling per attempt, capped at one hour.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := baseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// EmailOutboxWorker delivers queued notification emails.
type EmailOutboxWorker struct {
	outbox      repository.OutboxRepository
	sender      mail.Sender
	clock       clock.Clock
	metrics     *observability.Metrics
	logger      *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// EmailOutboxOptions tunes polling and retries.
type EmailOutboxOptions struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// NewEmailOutboxWorker builds the worker.
func NewEmailOutboxWorker(outbox repository.OutboxRepository, sender mail.Sender, clk clock.Clock, metrics *observability.Metrics, logger *zap.Logger, opts EmailOutboxOptions) *EmailOutboxWorker {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 8
	}
	return &EmailOutboxWorker{
		outbox:      outbox,
		sender:      sender,
		clock:       clk,
		metrics:     metrics,
		logger:      logger,
		interval:    opts.Interval,
		batchSize:   opts.BatchSize,
		maxAttempts: opts.MaxAttempts,
	}
}

// Run polls the outbox until ctx is cancelled.
func (w *EmailOutboxWorker) Run(ctx context.Context) {
	w.logger.Info("email outbox worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("email outbox poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("email outbox worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims due entries and attempts each once, returning how many were claimed.
func (w *EmailOutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	now := w.clock.Now()
	entries, err := w.outbox.ClaimDue(ctx, now, now.Add(outboxLease), w.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range entries {
		w.deliver(ctx, &entries[i])
	}
	return len(entries), nil
}

func (w *EmailOutboxWorker) deliver(ctx context.Context, entry *domain.EmailOutboxEntry) {
	logger := w.logger.With(
		zap.String("outbox_id", entry.ID),
		zap.String("notification_id", entry.NotificationID),
	)
	sendErr := w.sender.Send(ctx, entry.Recipient, entry.Subject, entry.Body)
	attempts := entry.Attempts + 1

	if sendErr == nil {
		if err := w.outbox.MarkSent(ctx, entry.ID, w.clock.Now()); err != nil {
			logger.Error("mark outbox entry sent failed", zap.Error(err))
			return
		}
		w.metrics.RecordEmail("sent")
		return
	}

	if attempts >= w.maxAttempts {
		if err := w.outbox.MarkFailed(ctx, entry.ID, attempts, sendErr.Error()); err != nil {
			logger.Error("mark outbox entry failed", zap.Error(err))
			return
		}
		w.metrics.RecordEmail("failed")
		logger.Warn("email delivery abandoned", zap.Int("attempts", attempts), zap.Error(sendErr))
		return
	}

	next := w.clock.Now().Add(Backoff(attempts))
	if err := w.outbox.MarkRetry(ctx, entry.ID, attempts, next, sendErr.Error()); err != nil {
		logger.Error("schedule outbox retry failed", zap.Error(err))
		return
	}
	w.metrics.RecordEmail("retry")
	logger.Info("email delivery failed, retry scheduled",
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(sendErr))
}
