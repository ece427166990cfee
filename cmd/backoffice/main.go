package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kliq/backoffice/internal/app"
	"github.com/kliq/backoffice/internal/auth"
	"github.com/kliq/backoffice/internal/observability"
	"github.com/kliq/backoffice/internal/platform/cache"
	"github.com/kliq/backoffice/internal/platform/db"
	"github.com/kliq/backoffice/jobs"
	"github.com/kliq/backoffice/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	deps := app.Deps{
		Logger:  logger,
		Config:  cfg,
		Redis:   redisClient,
		Metrics: observability.NewMetrics(),
	}

	if cfg.DataBackend == app.BackendPostgres {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		deps.DB = pool
	}

	if cfg.IDPIssuer != "" {
		key, err := auth.ParsePublicKey(cfg.IDPPublicKey)
		if err != nil {
			logger.Error("load idp key", slog.Any("error", err))
			os.Exit(1)
		}
		if deps.Tokens, err = auth.NewTokenVerifier(auth.TokenConfig{Issuer: cfg.IDPIssuer, ClientID: cfg.IDPClientID, Key: key}); err != nil {
			logger.Error("init token verifier", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("bearer tokens enabled", slog.String("issuer", cfg.IDPIssuer))
	}

	reportClient := report.NewClient(cfg.GotenbergURL)
	if err := reportClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable, statement PDFs will fail", slog.Any("error", err))
	}
	deps.PDF = reportClient
	deps.ReportHandler = report.NewHandler(reportClient, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	deps.Queue = jobClient
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	deps.JobHandler = jobs.NewHandler(inspector, logger)

	backoffice, err := app.New(ctx, deps)
	if err != nil {
		logger.Error("assemble app", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      backoffice.Router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.DataBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
