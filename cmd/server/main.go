package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/mapfield/internal/cache"
	"github.com/JonMunkholm/mapfield/internal/config"
	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/JonMunkholm/mapfield/internal/logging"
	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/JonMunkholm/mapfield/internal/metrics"
	"github.com/JonMunkholm/mapfield/internal/store"
	"github.com/JonMunkholm/mapfield/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	pool, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	mapStore := store.New(pool)
	if err := mapStore.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	opts := core.ServiceOptions{
		Store:           mapStore,
		Observer:        metrics.Recorder{},
		Limiter:         core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		MountPoint:      cfg.Render.MountPoint,
		MaxDatasetBytes: cfg.Render.MaxDatasetBytes,
		MaxDatasetRows:  cfg.Render.MaxDatasetRows,
	}

	if rc := cache.OpenRedis(cfg.Redis); rc != nil {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, render cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			opts.Cache = cache.New(rc, cfg.Redis.TTL)
			slog.Info("render cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	registry := maptype.Default()
	service := core.NewService(registry, opts)
	slog.Info("map types registered", "count", registry.Len())

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
