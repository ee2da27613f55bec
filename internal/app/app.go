// Package app assembles the application: configuration, database,
// migrations, tracing, Genkit, the gateway, and the thread store. The
// serve command builds an App and hands its parts to the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/aetherchat/aether/db"
	"github.com/aetherchat/aether/internal/config"
	"github.com/aetherchat/aether/internal/database"
	"github.com/aetherchat/aether/internal/gateway"
	"github.com/aetherchat/aether/internal/observability"
	"github.com/aetherchat/aether/internal/thread"
)

// Model request throttle: steady rate per second with a small burst.
const (
	modelRatePerSec = 2
	modelRateBurst  = 4
)

// App holds the wired application components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Genkit  *genkit.Genkit
	Pool    *pgxpool.Pool
	Gateway *gateway.Gateway
	Store   *thread.Store

	shutdownTracing func(context.Context) error
}

// Setup validates cfg, applies migrations, and wires every component.
// Callers own the returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresConnString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.TraceEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Logger:      logger,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		pool.Close()
		return nil, fmt.Errorf("initializing genkit")
	}

	gw, err := gateway.New(gateway.Config{
		Genkit:    g,
		Logger:    logger.With("component", "gateway"),
		ModelName: cfg.ModelName,
		MaxTurns:  cfg.MaxTurns,
		Limiter:   rate.NewLimiter(modelRatePerSec, modelRateBurst),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		Genkit:          g,
		Pool:            pool,
		Gateway:         gw,
		Store:           thread.NewStore(pool, logger.With("component", "thread")),
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close releases the pool and flushes pending trace spans.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(context.Background()); err != nil {
			return fmt.Errorf("flushing traces: %w", err)
		}
	}
	return nil
}
