package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-notifier/internal/api/http"
	"github.com/spec-kit/ticket-notifier/internal/api/http/handlers"
	"github.com/spec-kit/ticket-notifier/internal/auth"
	"github.com/spec-kit/ticket-notifier/internal/config"
	"github.com/spec-kit/ticket-notifier/internal/events"
	"github.com/spec-kit/ticket-notifier/internal/observability"
	"github.com/spec-kit/ticket-notifier/internal/service"
	"github.com/spec-kit/ticket-notifier/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open registration store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	gateway, err := newGateway(ctx, cfg.Push, logger)
	if err != nil {
		logger.Fatal("failed to init push gateway", zap.String("provider", cfg.Push.Provider), zap.Error(err))
	}

	metrics := observability.NewMetrics()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Tokens:      store.Tokens,
		Memberships: store.Memberships,
		Gateway:     gateway,
		PruneMode:   cfg.Notify.PruneMode,
		Metrics:     metrics,
		Logger:      logger,
	})

	checks := []handlers.DependencyCheck{{Name: cfg.Store.Driver, Ping: store.Ping}}

	var (
		subscriber worker.Subscriber
		queue      events.Publisher
	)
	if cfg.NATS.Enabled() {
		natsSub, err := events.NewNATSSubscriber(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect nats", zap.Error(err))
		}
		defer natsSub.Close() //nolint:errcheck

		natsPub, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Fatal("failed to connect nats publisher", zap.Error(err))
		}
		defer natsPub.Close() //nolint:errcheck

		subscriber, queue = natsSub, natsPub
		checks = append(checks, handlers.DependencyCheck{Name: "nats", Ping: func(context.Context) error {
			if !natsSub.Connected() {
				return errors.New("not connected")
			}
			return nil
		}})
	} else {
		logger.Info("NATS_URL not set, using in-process event bus")
		bus := events.NewLocalBus()
		defer bus.Close() //nolint:errcheck
		subscriber, queue = bus, bus
	}

	notificationWorker := worker.NewNotificationWorker(subscriber, notifications, cfg.NATS.Subject, cfg.NATS.QueueGroup, logger)
	if err := notificationWorker.Start(ctx); err != nil {
		logger.Fatal("failed to start notification worker", zap.Error(err))
	}

	var tokenManager *auth.TokenManager
	if cfg.Auth.Enabled() {
		tokenManager = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, admin API is unauthenticated")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Tokens:         handlers.NewTokensHandler(store.Tokens),
		Teams:          handlers.NewTeamsHandler(store.Memberships),
		Notifications:  handlers.NewNotificationsHandler(notifications, queue, cfg.NATS.Subject),
		AuthMiddleware: auth.NewAuthMiddleware(tokenManager),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("ticket notifier started", zap.String("addr", cfg.App.Addr()))

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := notificationWorker.Stop(shutdownCtx); err != nil {
		logger.Warn("worker did not drain", zap.Error(err))
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
