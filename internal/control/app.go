package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/replikit/internal/core/config"
	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/core/retry"
	"github.com/vietddude/replikit/internal/core/worker"
	"github.com/vietddude/replikit/internal/health"
	"github.com/vietddude/replikit/internal/infra/api"
	redisclient "github.com/vietddude/replikit/internal/infra/redis"
	"github.com/vietddude/replikit/internal/infra/storage"
	"github.com/vietddude/replikit/internal/infra/storage/memory"
	"github.com/vietddude/replikit/internal/infra/storage/sqldb"
	"github.com/vietddude/replikit/internal/prediction"
)

// Output is the decoded output of predictions run from the command line,
// kept as raw JSON since the shape depends on the model.
type Output = json.RawMessage

// App wires the API client, the lifecycle and the snapshot stores.
type App struct {
	cfg         *config.AppConfig
	client      *api.Client
	lifecycle   *prediction.Lifecycle[Output]
	strategy    retry.Strategy
	repo        storage.PredictionRepository
	db          *sqldb.DB
	redisClient *redisclient.Client
	healthMon   *health.Monitor
	pruner      *worker.Pruner
	log         *slog.Logger
}

// NewApp builds every component named by cfg.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	strategy, err := cfg.Polling.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid polling config: %w", err)
	}
	a.strategy = strategy

	// 1. Initialize Storage
	if cfg.Storage.Driver == config.StorageMemory {
		a.repo = memory.NewPredictionRepo()
		a.log.Debug("Using memory storage")
	} else {
		db, err := sqldb.NewDB(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.repo = sqldb.NewPredictionRepo(db)
		a.log.Debug("Using SQL storage", "driver", cfg.Storage.Driver)
	}

	a.pruner = worker.NewPruner(cfg.Storage.Retention, a.repo)
	recorders := []prediction.Recorder{a.repo}

	// 2. Optional Redis cache
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = rc
		recorders = append(recorders, rc)
		a.log.Debug("Using Redis snapshot cache")
	}

	// 3. API client and lifecycle
	client, err := api.NewClient(cfg.API)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	if cfg.API.Token == "" {
		a.log.Warn("No API token configured", "env", config.TokenEnv)
	}
	a.client = client
	a.lifecycle = prediction.New[Output](client, prediction.Config{
		Recorder: prediction.Recorders(recorders...),
	})

	// 4. Health
	stores := make(map[string]health.Pinger)
	if a.db != nil {
		stores["database"] = pingFunc(a.db.Health)
	}
	if a.redisClient != nil {
		stores["redis"] = a.redisClient
	}
	a.healthMon = health.NewMonitor(client.Provider(), a.repo, stores, health.DefaultThresholds())

	return a, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Lifecycle returns the prediction lifecycle.
func (a *App) Lifecycle() *prediction.Lifecycle[Output] {
	return a.lifecycle
}

// Strategy returns the configured polling strategy.
func (a *App) Strategy() retry.Strategy {
	return a.strategy
}

// Repository returns the snapshot repository.
func (a *App) Repository() storage.PredictionRepository {
	return a.repo
}

// Cache returns the Redis snapshot cache, or nil when not configured.
func (a *App) Cache() *redisclient.Client {
	return a.redisClient
}

// Pruner returns the retention worker for stored predictions.
func (a *App) Pruner() *worker.Pruner {
	return a.pruner
}

// HealthMonitor returns the aggregated health monitor.
func (a *App) HealthMonitor() *health.Monitor {
	return a.healthMon
}

// Lookup returns the best stored snapshot of id without calling the API:
// the Redis cache first, then the repository.
// source names where the snapshot came from.
func (a *App) Lookup(ctx context.Context, id string) (s *domain.Snapshot, source string, err error) {
	if a.redisClient != nil {
		cached, found, err := a.redisClient.Lookup(ctx, id)
		if err != nil {
			a.log.Warn("Redis lookup failed", "id", id, "error", err)
		} else if found {
			return cached, "redis", nil
		}
	}

	s, err = a.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return s, "repository", nil
}

// ServerAddr is the listen address from server.port.
func (a *App) ServerAddr() string {
	return fmt.Sprintf(":%d", a.cfg.Server.Port)
}

// StartServer serves /health and /metrics on addr until ctx is done.
// Retention pruning runs alongside it.
func (a *App) StartServer(ctx context.Context, addr string) {
	srv := health.NewServer(a.healthMon, addr)
	go func() {
		if err := srv.Run(ctx); err != nil {
			a.log.Error("Health server failed", "addr", addr, "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
	go a.pruner.Start(ctx)
}

// Close releases connections.
func (a *App) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	errs = append(errs, a.closeStores())
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
