package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chargegrid/configurator/internal/audit"
	"github.com/chargegrid/configurator/internal/cache"
	"github.com/chargegrid/configurator/internal/config"
	"github.com/chargegrid/configurator/internal/events"
	"github.com/chargegrid/configurator/internal/log"
	"github.com/chargegrid/configurator/internal/metrics"
	"github.com/chargegrid/configurator/internal/tariff/repo/postgres"
	"github.com/chargegrid/configurator/internal/tariff/usecase"
	"github.com/chargegrid/configurator/internal/tracing"
	"github.com/chargegrid/configurator/internal/workers/expiry"
)

// App wires the configurator service together: storage, cache, events,
// resolution services, the expiry worker and the metrics server.
type App struct {
	config        *config.Config
	logger        *zap.Logger
	store         *postgres.Store
	ruleCache     *cache.Cache
	publisher     events.Publisher
	metricsServer *metrics.Server
	expiryWorker  *expiry.Worker
	stopTracing   func()

	Resolution   *usecase.ResolutionService
	Rules        *usecase.RuleService
	Availability *usecase.AvailabilityService
}

// New creates a new application instance
func New(cfg *config.Config) (*App, error) {
	if err := log.Init(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx := context.Background()
	logger := log.L(ctx)

	logger.Info("Initializing configurator service",
		zap.String("app_name", cfg.AppName))

	store, err := postgres.NewStore(ctx, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var ruleCache *cache.Cache
	if cfg.Redis.Enabled {
		ruleCache, err = cache.NewCache(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis initialization failed, continuing without cache",
				zap.Error(err), zap.String("redis_addr", cfg.Redis.GetRedisAddr()))
			ruleCache = nil
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Warn("Kafka initialization failed, continuing without events", zap.Error(err))
		} else {
			publisher = kp
		}
	}

	var stopTracing func()
	if cfg.Tracing.Enabled {
		stopTracing, err = tracing.Init(tracing.Config{
			ServiceName:    cfg.AppName,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Tracing.Environment,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			SamplingRatio:  cfg.Tracing.SamplingRatio,
		}, logger)
		if err != nil {
			logger.Warn("Tracing initialization failed, continuing without tracing", zap.Error(err))
		}
	}

	auditor := audit.NewZapAuditLogger(logger)

	resolution := usecase.NewResolutionService(
		store.Rules(), store.Availability(), ruleCache,
		cfg.Pricing.Currency, cfg.Availability.DefaultOpen)
	rules := usecase.NewRuleService(store.Rules(), ruleCache, publisher, auditor)
	availability := usecase.NewAvailabilityService(store.Availability(), ruleCache, publisher, auditor)

	return &App{
		config:        cfg,
		logger:        logger,
		store:         store,
		ruleCache:     ruleCache,
		publisher:     publisher,
		metricsServer: metrics.NewServer(cfg.Metrics.Addr, logger),
		expiryWorker:  expiry.NewWorker(rules, cfg.Pricing.ExpirySweepSchedule),
		stopTracing:   stopTracing,
		Resolution:    resolution,
		Rules:         rules,
		Availability:  availability,
	}, nil
}

// Run starts the application and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting configurator service")

	if err := a.expiryWorker.Start(); err != nil {
		return fmt.Errorf("failed to start expiry worker: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.metricsServer.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down configurator service")

	a.expiryWorker.Stop()

	if err := a.metricsServer.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to shut down metrics server", zap.Error(err))
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if a.ruleCache != nil {
		if err := a.ruleCache.Close(); err != nil {
			a.logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	if a.store != nil {
		a.store.Close()
	}

	if a.stopTracing != nil {
		a.stopTracing()
	}

	a.logger.Info("Shutdown complete")
	return nil
}
