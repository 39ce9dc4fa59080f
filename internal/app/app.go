// Package app wires configuration into the store, provider and services shared
// by the HTTP server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/ai"
	"github.com/tigerfox1974/StudyBuddy/internal/config"
	"github.com/tigerfox1974/StudyBuddy/internal/database"
	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/repository"
	"github.com/tigerfox1974/StudyBuddy/internal/repository/gormstore"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

// App holds the long-lived components. Close releases them in reverse order.
type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Store    repository.Store
	Redis    *database.RedisClients
	Provider ai.Provider
	JWT      *middleware.JWTAuth

	Ledger        *services.TokenLedger
	Workflow      *services.ProcessingWorkflow
	Accounts      *services.AccountService
	Subscriptions *services.SubscriptionService
	Exports       *services.ExportService
	Janitor       *services.CacheJanitor

	closers []func()
}

// Options adjusts wiring that differs between the server and the CLI.
type Options struct {
	// Progress overrides the Redis publisher.
	Progress services.ProgressPublisher
	// SkipRedis leaves Redis unconnected even when REDIS_URL is set.
	SkipRedis bool
	// JWT replaces the token issuer built from config, for callers that need it first.
	JWT *middleware.JWTAuth
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.RedisURL != "" && !opts.SkipRedis {
		clients, err := database.NewRedisClients(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = clients
		a.closers = append(a.closers, clients.Close)
		log.Info("redis connected")
	}

	provider, err := NewProvider(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Provider = provider
	if c, ok := provider.(interface{ Close() }); ok {
		a.closers = append(a.closers, c.Close)
	}
	log.Info("generation provider ready", "provider", cfg.LLMProvider, "model", provider.Model())

	var (
		progress services.ProgressPublisher = services.NopPublisher{}
		locker   services.Locker            = services.NopLocker{}
	)
	if a.Redis != nil {
		progress = services.NewRedisPublisher(a.Redis.Cmd)
		locker = services.NewRedisLocker(a.Redis.Cmd)
	}
	if opts.Progress != nil {
		progress = opts.Progress
	}

	a.JWT = opts.JWT
	if a.JWT == nil {
		a.JWT = middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	}
	a.Ledger = services.NewTokenLedger(nil)
	a.Workflow = services.NewProcessingWorkflow(services.WorkflowDeps{
		Store:     a.Store,
		Ledger:    a.Ledger,
		Extractor: services.NewFileExtractService(),
		Generator: services.NewGenerator(provider, log),
		Progress:  progress,
		Locker:    locker,
		Log:       log,
	}, services.WorkflowConfig{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		MaxInputTokens: cfg.MaxInputTokens,
		UploadDir:      cfg.UploadDir,
	})
	a.Accounts = services.NewAccountService(a.Store, a.Ledger, a.JWT, log)
	a.Subscriptions = services.NewSubscriptionService(a.Store, a.Ledger, log)
	a.Exports = services.NewExportService(a.Store, a.Ledger, log)
	a.Janitor = services.NewCacheJanitor(
		a.Store,
		a.Subscriptions,
		time.Duration(cfg.CacheRetentionDays)*24*time.Hour,
		cfg.JanitorInterval,
		log,
	)

	return a, nil
}

func (a *App) openStore() error {
	switch a.Config.DBDriver {
	case "postgres":
		pool, err := database.NewPostgresPool(a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres connection failed: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.Log.Info("postgres connected")

		if err := database.RunMigrations(pool); err != nil {
			return err
		}
		a.Log.Info("database migrations applied")
		a.Store = repository.NewPGStore(pool)
	case "sqlite":
		db, err := database.NewSQLiteDB(a.Config.SQLitePath)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, func() { sqlDB.Close() })
		}
		store, err := gormstore.New(db)
		if err != nil {
			return err
		}
		a.Store = store
		a.Log.Info("sqlite opened", "path", a.Config.SQLitePath)
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", a.Config.DBDriver)
	}
	return nil
}

// NewProvider builds the configured generation backend.
func NewProvider(ctx context.Context, cfg *config.Config, log *slog.Logger) (ai.Provider, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMConcurrency, cfg.LLMTimeout, log)
	case "openai":
		return ai.NewOpenAIProvider(ctx, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.LLMConcurrency, cfg.LLMTimeout)
	case "demo", "":
		log.Warn("running with the demo provider; generated content is canned")
		return ai.NewDemoProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (want gemini, openai or demo)", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
