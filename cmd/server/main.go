package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/config"
	"github.com/JonMunkholm/equipview/internal/core"
	"github.com/JonMunkholm/equipview/internal/logging"
	"github.com/JonMunkholm/equipview/internal/web"
	mw "github.com/JonMunkholm/equipview/internal/web/middleware"
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

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	keys, err := auth.ParseAPIKeys(cfg.Security.APIKeys)
	if err != nil {
		return err
	}
	slog.Info("api keys loaded", "count", keys.Len())

	sessions, err := openSessions(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer sessions.close()

	opts, closeOpts, err := serviceOptions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOpts()

	service := core.NewService(st, core.ServiceConfig{
		HistoryLimit:         cfg.History.Limit,
		MaxFileSize:          cfg.Upload.MaxFileSize,
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		UploadTimeout:        cfg.Upload.Timeout,
		Locale:               cfg.View.Locale,
		ReportMaxRows:        cfg.Report.MaxRows,
	}, opts...)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go service.StartSessionReaper(jobCtx, core.ReaperConfig{
		IdleTimeout:   cfg.History.IdleTimeout,
		CheckInterval: cfg.History.ReapInterval,
	})

	var serverOpts []web.Option
	if sessions.redis != nil {
		serverOpts = append(serverOpts, web.WithRateCounter(mw.NewRedisCounter(sessions.redis, "equipview:rl:")))
	} else {
		counter := mw.NewMemoryCounter()
		go counter.StartSweeper(jobCtx, cfg.History.ReapInterval)
		serverOpts = append(serverOpts, web.WithRateCounter(counter))
	}

	server := web.NewServer(service, sessions, keys, cfg, serverOpts...)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for uploads to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	slog.Info("server stopped")
	return nil
}
