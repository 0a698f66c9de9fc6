package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	httpx "github.com/modelplane/modelplane/internal/http"
	"github.com/modelplane/modelplane/internal/repository/memory"
	"github.com/modelplane/modelplane/internal/seed"
	"github.com/modelplane/modelplane/internal/service/serving"
	"github.com/modelplane/modelplane/internal/service/telemetry"
	"github.com/modelplane/modelplane/internal/ws"
	"github.com/modelplane/modelplane/pkg/config"
	"github.com/modelplane/modelplane/pkg/id"
	"github.com/modelplane/modelplane/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := memory.NewStore()
	hub := ws.NewHub()
	ids := id.NewRandom()

	plane := serving.New(store, ids, hub, log)
	ingest := telemetry.New(plane, log)

	if path := strings.TrimSpace(cfg.SeedFile); path != "" {
		fixtures, err := seed.Load(path)
		if err != nil {
			log.Error("failed to load seed file", "path", path, "error", err)
			os.Exit(1)
		}
		if err := seed.Apply(ctx, fixtures, plane, ingest, log); err != nil {
			log.Error("failed to apply seed fixtures", "path", path, "error", err)
			os.Exit(1)
		}
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, plane, ingest, hub, limiter, cfg.AgentToken)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
