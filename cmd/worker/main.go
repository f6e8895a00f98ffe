package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vocalizeapp/vocalize/internal/cache"
	"github.com/vocalizeapp/vocalize/internal/config"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/internal/inference"
	"github.com/vocalizeapp/vocalize/internal/logging"
	"github.com/vocalizeapp/vocalize/internal/metrics"
	"github.com/vocalizeapp/vocalize/internal/queue"
	"github.com/vocalizeapp/vocalize/internal/service"
	"github.com/vocalizeapp/vocalize/internal/storage"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

const queueDepthInterval = 15 * time.Second

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

	var jobCache service.JobCache
	if c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.WithError(err).Warn("cache unavailable, continuing without it")
	} else {
		defer c.Close()
		jobCache = c
	}

	infer := inference.New(cfg.Inference)
	jobs := service.NewJobs(repo, stor, q, infer, jobCache, logger,
		cfg.Auth.CallbackToken, cfg.Inference.VideoJobCost)

	metricsSrv := metrics.NewServer(cfg.Metrics.Port)
	go func() {
		if err := metricsSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down worker")
		cancel()
	}()

	// Surface queue depth while the worker runs
	go func() {
		ticker := time.NewTicker(queueDepthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if depth, err := q.GetQueueDepth(); err == nil {
					metrics.JobsQueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	handler := func(msg *models.DispatchMessage) error {
		logger.WithJobID(msg.JobID).WithField("kind", msg.Kind).Info("processing dispatch")
		return jobs.ProcessDispatch(ctx, msg)
	}

	logger.Info("worker started, waiting for jobs")
	if err := q.ConsumeDispatches(ctx, handler); err != nil {
		logger.WithError(err).Fatal("failed to consume dispatches")
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("metrics server shutdown failed")
	}

	logger.Info("worker stopped")
}
