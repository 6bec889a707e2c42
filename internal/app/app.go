// Package app wires the long-lived application state: configuration,
// registry, idempotency cache, intervention service, and storage are all
// constructed once here and passed explicitly to the HTTP handlers.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quillfire/impetus/internal/cache"
	"github.com/quillfire/impetus/internal/config"
	"github.com/quillfire/impetus/internal/intervention"
	"github.com/quillfire/impetus/internal/llm"
	"github.com/quillfire/impetus/internal/prompt"
	"github.com/quillfire/impetus/internal/server"
	"github.com/quillfire/impetus/internal/storage"
	"github.com/quillfire/impetus/internal/storage/memory"
	"github.com/quillfire/impetus/internal/storage/sqldb"
)

// App owns every long-lived component of the server process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *llm.Registry
	Cache    *cache.Cache
	Service  *intervention.Service
	Metrics  *intervention.Metrics
	Store    storage.TaskStore

	server *server.Server
}

// New builds the application from configuration. The baseline provider
// is resolved with allow_blank semantics so a server without any key
// still starts and serves BYOK traffic.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	prompts, err := prompt.NewStore()
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}

	registry := llm.NewRegistry(cfg, prompts)
	if provider, err := registry.Resolve(ctx, llm.Override{}, true); err != nil {
		return nil, fmt.Errorf("resolve default provider: %w", err)
	} else if provider == nil {
		logger.Warn("no server-side LLM key configured; only BYOK requests will succeed",
			slog.String("default_provider", registry.DefaultProvider()))
	} else {
		logger.Info("default LLM provider ready",
			slog.String("provider", provider.Name()),
			slog.String("model", provider.Model()))
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	metrics := intervention.NewMetrics(cfg.Metrics.Enabled)
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Cache:    cache.New(cfg.Cache.CacheTTL()),
		Service:  intervention.NewService(logger, metrics),
		Metrics:  metrics,
		Store:    store,
	}

	srv := server.New(cfg.Server.Port, cfg.Server.RequestTimeout(), logger)
	server.NewInterventionHandler(logger, app.Registry, app.Cache, app.Service, app.Store).Register(srv.Router)
	server.NewTaskHandler(logger, app.Store).Register(srv.Router)
	server.NewOpsHandler(metrics).Register(srv.Router)
	app.server = srv

	return app, nil
}

// Server returns the configured HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Close releases the application's resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func openStore(cfg *config.Config) (storage.TaskStore, error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqldb.New(cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
