package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vocalizeapp/vocalize/internal/auth"
	"github.com/vocalizeapp/vocalize/internal/cache"
	"github.com/vocalizeapp/vocalize/internal/config"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/internal/inference"
	"github.com/vocalizeapp/vocalize/internal/logging"
	"github.com/vocalizeapp/vocalize/internal/metrics"
	"github.com/vocalizeapp/vocalize/internal/queue"
	"github.com/vocalizeapp/vocalize/internal/service"
	"github.com/vocalizeapp/vocalize/internal/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize storage")
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to queue")
	}
	defer q.Close()

	jobCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// The cache is a read accelerator, not a dependency
		logger.WithError(err).Warn("cache unavailable, continuing without it")
		jobCache = nil
	} else {
		defer jobCache.Close()
	}

	crypto := auth.NewStdCrypto()
	sessions := auth.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, crypto)
	infer := inference.New(cfg.Inference)

	accounts := service.NewAccounts(repo, sessions, crypto, cfg.Auth.SignupCredits)
	var jobCacheIface service.JobCache
	if jobCache != nil {
		jobCacheIface = jobCache
	}
	jobs := service.NewJobs(repo, stor, q, infer, jobCacheIface, logger,
		cfg.Auth.CallbackToken, cfg.Inference.VideoJobCost)

	api := &API{
		accounts: accounts,
		jobs:     jobs,
		repo:     repo,
		sessions: sessions,
		logger:   logger,
	}

	metricsSrv := metrics.NewServer(cfg.Metrics.Port)
	go func() {
		if err := metricsSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	router := setupRouter(api, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", addr).Info("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("metrics server shutdown failed")
	}

	logger.Info("server stopped")
}
