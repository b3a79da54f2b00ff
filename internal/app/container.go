package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sendflowr/pulse/adapter/api"
	identityApp "github.com/sendflowr/pulse/internal/identity/application"
	identityDomain "github.com/sendflowr/pulse/internal/identity/domain"
	"github.com/sendflowr/pulse/internal/simulation"
	"github.com/sendflowr/pulse/internal/timing/application/services"
	timingDomain "github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/sendflowr/pulse/internal/timing/infrastructure/audit"
	"github.com/sendflowr/pulse/internal/timing/infrastructure/estimators"
	timingPersistence "github.com/sendflowr/pulse/internal/timing/infrastructure/persistence"
	"github.com/sendflowr/pulse/pkg/config"
	"github.com/sendflowr/pulse/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	DB          *pgxpool.Pool
	SQLiteDB    *sql.DB
	RedisClient *redis.Client

	// Repositories
	EventRepo    timingDomain.EventRepository
	IdentityRepo identityDomain.Repository
	FeatureCache timingDomain.FeatureCache
	Explanations timingDomain.ExplanationSink
	EventWriter  simulation.EventWriter

	// Estimators
	Latency services.LatencyEstimator
	Weights services.SignalWeightEstimator
	Risk    services.RiskEstimator

	// Application services
	FeatureService  *services.FeatureService
	DecisionService *services.DecisionService
	Resolver        *identityApp.Resolver

	// Observability
	Health  *observability.HealthRegistry
	Metrics observability.Metrics

	// API server, assembled but not started
	APIServer *api.Server

	rabbitSink *audit.RabbitMQExplanationSink
}

// NewContainer wires all application dependencies. In development the
// container degrades to local mode when PostgreSQL is unreachable,
// storing the event store and identity graph in SQLite.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Health:  observability.NewHealthRegistry(),
		Metrics: observability.NoopMetrics{},
	}
	if cfg.IsDevelopment() {
		// Inspectable in-process metrics; production exports nothing yet.
		c.Metrics = observability.NewInMemoryMetrics()
	}

	factory, err := c.connectStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c.EventRepo, err = factory.EventRepository()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.IdentityRepo, err = factory.IdentityRepository()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.EventWriter, err = factory.EventWriter()
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := c.connectRedis(ctx, cfg, logger); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.connectExplanationSink(cfg, logger); err != nil {
		c.Close()
		return nil, err
	}

	c.buildEstimators(cfg, logger)

	c.FeatureService = services.NewFeatureService(
		c.EventRepo,
		c.FeatureCache,
		c.Weights,
		services.FeatureServiceConfig{
			LookbackDays: cfg.FeatureLookbackDays,
			MinEvents:    cfg.FeatureMinEvents,
			Metrics:      c.Metrics,
		},
		logger,
	)

	c.DecisionService = services.NewDecisionService(
		c.FeatureService,
		c.Latency,
		c.Risk,
		c.FeatureCache,
		c.Explanations,
		services.DecisionServiceConfig{
			RiskThreshold:         cfg.RiskThreshold,
			DefaultLatencySeconds: cfg.DefaultLatencySeconds,
			Metrics:               c.Metrics,
		},
		logger,
	)

	c.Resolver = identityApp.NewResolver(c.IdentityRepo, logger)

	handler := api.NewTimingHandler(c.DecisionService, c.FeatureService, c.Resolver, logger)
	c.APIServer = api.NewServer(api.ServerConfig{
		Addr:         cfg.APIAddr,
		ReadTimeout:  cfg.APIReadTimeout,
		WriteTimeout: cfg.APIWriteTimeout,
	}, handler, c.Health, logger)
	c.APIServer.SetMetrics(c.Metrics)

	return c, nil
}

// connectStorage connects to PostgreSQL, falling back to SQLite in
// development when the server is unreachable.
func (c *Container) connectStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RepositoryFactory, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err == nil {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			err = pingErr
		}
	}
	if err == nil {
		c.DB = pool
		logger.Info("connected to database")
		c.Health.Register("database", observability.PingChecker("event store", observability.HealthStatusUnhealthy, func(ctx context.Context) error {
			return pool.Ping(ctx)
		}))
		return NewPostgresFactory(pool), nil
	}

	if !cfg.IsDevelopment() {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Warn("PostgreSQL not available, using local SQLite storage",
		"error", err,
		"path", cfg.SQLitePath,
	)

	if mkErr := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); mkErr != nil {
		return nil, fmt.Errorf("failed to create SQLite directory: %w", mkErr)
	}
	sqliteDB, openErr := sql.Open("sqlite", cfg.SQLitePath)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", openErr)
	}
	c.SQLiteDB = sqliteDB
	c.Health.Register("database", observability.PingChecker("event store", observability.HealthStatusUnhealthy, func(ctx context.Context) error {
		return sqliteDB.PingContext(ctx)
	}))
	return NewSQLiteFactory(sqliteDB), nil
}

// connectRedis wires the feature cache. Development falls back to an
// in-process cache when Redis is unreachable; local mode never uses
// Redis at all.
func (c *Container) connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if c.SQLiteDB != nil || cfg.RedisURL == "" {
		c.FeatureCache = timingPersistence.NewMemoryFeatureCache()
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err == nil {
		client := redis.NewClient(opt)
		if pingErr := client.Ping(ctx).Err(); pingErr != nil {
			_ = client.Close()
			err = pingErr
		} else {
			c.RedisClient = client
			c.FeatureCache = timingPersistence.NewRedisFeatureCache(client)
			logger.Info("connected to Redis")
			c.Health.Register("redis", observability.PingChecker("feature cache", observability.HealthStatusDegraded, func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}))
			return nil
		}
	}

	if !cfg.IsDevelopment() {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Warn("Redis not available, using in-process feature cache", "error", err)
	c.FeatureCache = timingPersistence.NewMemoryFeatureCache()
	return nil
}

// connectExplanationSink wires the audit trail publisher. An empty
// broker URL disables publishing.
func (c *Container) connectExplanationSink(cfg *config.Config, logger *slog.Logger) error {
	if cfg.RabbitMQURL == "" {
		c.Explanations = audit.NewNoopExplanationSink()
		return nil
	}

	sink, err := audit.NewRabbitMQExplanationSink(cfg.RabbitMQURL, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Warn("RabbitMQ not available, explanations will be dropped", "error", err)
		c.Explanations = audit.NewNoopExplanationSink()
		return nil
	}

	c.rabbitSink = sink
	c.Explanations = sink
	c.Health.Register("rabbitmq", observability.PingChecker("explanation broker", observability.HealthStatusDegraded, func(ctx context.Context) error {
		return sink.Ping()
	}))
	return nil
}

// buildEstimators selects the latency model: a trained model when one
// is configured and loads, the heuristic otherwise.
func (c *Container) buildEstimators(cfg *config.Config, logger *slog.Logger) {
	c.Weights = estimators.NewHeuristicSignalWeightEstimator()
	c.Risk = estimators.NewHeuristicRiskEstimator()

	if cfg.LatencyModelPath != "" {
		trained, err := estimators.NewTrainedLatencyEstimator(cfg.LatencyModelPath, logger)
		if err == nil {
			c.Latency = trained
			logger.Info("loaded trained latency model", "path", cfg.LatencyModelPath)
			return
		}
		logger.Warn("failed to load latency model, using heuristic", "error", err)
	}
	c.Latency = estimators.NewHeuristicLatencyEstimator()
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.rabbitSink != nil {
		if err := c.rabbitSink.Close(); err != nil {
			c.Logger.Warn("error closing explanation sink", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis client", "error", err)
		}
	}
	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("error closing SQLite database", "error", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	c.Logger.Info("container closed")
}
