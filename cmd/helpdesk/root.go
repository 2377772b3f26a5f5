package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/cache"
	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/events"
	"github.com/deskline/helpdesk/internal/observability"
	"github.com/deskline/helpdesk/internal/persistence"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/internal/service"
)

var rootCmd = &cobra.Command{
	Use:          "helpdesk",
	Short:        "Helpdesk ticketing service with SLA escalation",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, evaluateCmd, userCmd)
}

// runtime holds the process-wide dependencies shared by every command.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	pg        *persistence.Postgres
	redis     *persistence.Redis
	publisher events.Publisher

	users         repository.UserRepository
	outbox        repository.OutboxRepository
	eventLog      *service.EventLog
	notifications *service.NotificationService
	tickets       *service.TicketService
	policies      *service.SLAPolicyService
	evaluator     *service.SLAEvaluator
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

// bootstrap connects storage, applies migrations when enabled, and wires services.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	rt.pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, rt.pg.PoolHandle(), logger); err != nil {
			rt.pg.Close()
			return nil, err
		}
	}
	rt.redis = persistence.NewRedis(ctx, cfg.Redis, logger)

	rt.publisher, err = events.NewPublisher(cfg.Broker, logger)
	if err != nil {
		logger.Warn("event broker unavailable, events stay in-process", zap.String("broker", cfg.Broker.Kind), zap.Error(err))
		rt.publisher = events.NewFallbackPublisher(logger)
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	dispatcher.SubscribeAll(events.Forward(rt.publisher, logger))

	pool := rt.pg.PoolHandle()
	rt.users = repository.NewUserRepository(pool)
	rt.outbox = repository.NewOutboxRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	clk := clock.Real()

	rt.eventLog = service.NewEventLog(service.EventLogDependencies{
		EventRepo:  repository.NewTicketEventRepository(pool),
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Producer:   cfg.App.Name,
		Logger:     logger,
	})
	rt.notifications = service.NewNotificationService(service.NotificationDependencies{
		Repo:         repository.NewNotificationRepository(pool),
		Cache:        cache.NewUnreadCounter(rt.redis.Client, cfg.Redis.UnreadCacheTTL()),
		Clock:        clk,
		Metrics:      rt.metrics,
		Logger:       logger,
		EmailEnabled: cfg.Mail.Enabled,
	})
	rt.tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: repository.NewCommentRepository(pool),
		UserRepo:    rt.users,
		Events:      rt.eventLog,
		Notifier:    rt.notifications,
		Clock:       clk,
		Logger:      logger,
	})
	rt.policies = service.NewSLAPolicyService(policyRepo, logger)
	rt.evaluator = service.NewSLAEvaluator(service.SLAEvaluatorDependencies{
		TicketRepo: ticketRepo,
		PolicyRepo: policyRepo,
		Router:     service.NewEscalationRouter(rt.users),
		Notifier:   rt.notifications,
		Events:     rt.eventLog,
		Clock:      clk,
		Metrics:    rt.metrics,
		Logger:     logger,
	})
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			rt.logger.Warn("close event publisher", zap.Error(err))
		}
	}
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
