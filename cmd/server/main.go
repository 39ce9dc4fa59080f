package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/config"
	"github.com/tigerfox1974/StudyBuddy/internal/handlers"
	"github.com/tigerfox1974/StudyBuddy/internal/logger"
	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/router"
	"github.com/tigerfox1974/StudyBuddy/internal/websocket"
	"github.com/tigerfox1974/StudyBuddy/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	// ──── Step 2: Initialize Logging ────
	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log := logger.Get()
	log.Info("starting StudyBuddy backend", "env", cfg.Env)

	// ──── Steps 3-6: Store, Redis, Provider, Services ────
	// Without Redis the hub doubles as the progress publisher, so it is built first.
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	opts := app.Options{JWT: jwtAuth}
	var localHub *websocket.Hub
	if cfg.RedisURL == "" {
		localHub = websocket.NewHub(nil, jwtAuth, cfg.FrontendURL, log)
		opts.Progress = localHub
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Error("upload directory unavailable", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	// ──── Step 7: Start Processing Pool ────
	pool := worker.NewPool(cfg.ProcessingWorkers, log)
	pool.Start()

	// ──── Step 8: Start Cache Janitor ────
	a.Janitor.Start()

	// ──── Step 9: Start WebSocket Hub ────
	wsHub := localHub
	if a.Redis != nil {
		wsHub = websocket.NewHub(a.Redis.PubSub, a.JWT, cfg.FrontendURL, log)
		log.Info("websocket hub started", "mode", "redis")
	} else {
		log.Warn("REDIS_URL not set; progress is delivered to this instance only")
	}

	// ──── Step 10: Start HTTP Server ────
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	r := router.New(a.JWT, router.Handlers{
		Auth:      handlers.NewAuthHandler(a.Accounts),
		Documents: handlers.NewDocumentHandler(a.Workflow, pool, cfg.MaxUploadBytes()),
		Tokens:    handlers.NewTokenHandler(a.Workflow),
		Export:    handlers.NewExportHandler(a.Exports),
	}, wsHub, router.Options{
		FrontendURL: cfg.FrontendURL,
		AllowSignup: cfg.AllowSignup,
		AuthLimiter: authLimiter,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		// uploads wait for generation, so the write deadline covers the model timeout
		WriteTimeout: cfg.LLMTimeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("http shutdown", "error", err)
		}

		pool.Stop()
		a.Janitor.Stop()
		authLimiter.Stop()
		if wsHub != nil {
			wsHub.Close()
		}
	}()

	log.Info("StudyBuddy backend ready",
		"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
		"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
