package main

import (
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/deskline/helpdesk/internal/api/http"
	"github.com/deskline/helpdesk/internal/api/http/handlers"
	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/cache"
	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/mail"
	"github.com/deskline/helpdesk/internal/service"
	"github.com/deskline/helpdesk/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(rt.users, tokens)

	routes := httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": rt.pg,
			"redis":    rt.redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(rt.tickets, rt.eventLog),
		SLA:            handlers.NewSLAHandler(rt.policies, rt.evaluator),
		Notifications:  handlers.NewNotificationsHandler(rt.notifications),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, rt.users),
		Metrics:        rt.metrics,
	}

	var workers sync.WaitGroup
	if cfg.SLA.EvaluationMode == config.SLAModeRequest {
		routes.OnRequest = httptransport.EvaluateOnRequest(rt.evaluator)
	} else {
		scheduler := worker.NewSLAScheduler(rt.evaluator, cache.NewLocker(rt.redis.Client), cfg.SLA.Interval(), cfg.SLA.LockTTL(), logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			scheduler.Run(ctx)
		}()
	}

	if cfg.Mail.Enabled {
		sender, err := mail.NewSMTPSender(cfg.Mail)
		if err != nil {
			return err
		}
		outboxWorker := worker.NewEmailOutboxWorker(rt.outbox, sender, clock.Real(), rt.metrics, logger, worker.EmailOutboxOptions{
			Interval:    cfg.Mail.PollInterval(),
			BatchSize:   cfg.Mail.BatchSize,
			MaxAttempts: cfg.Mail.MaxAttempts,
		})
		workers.Add(1)
		go func() {
			defer workers.Done()
			outboxWorker.Run(ctx)
		}()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, rt.metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, routes)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("sla_mode", cfg.SLA.EvaluationMode))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-listenErr:
		logger.Error("http server stopped", zap.Error(err))
		stop()
	}

	if shutdownErr := app.ShutdownWithTimeout(10 * time.Second); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	workers.Wait()
	return err
}
