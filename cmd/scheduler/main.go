package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/pkg/config"
	"github.com/postflow-social/postflow/internal/pkg/database"
	"github.com/postflow-social/postflow/internal/pkg/logger"
	"github.com/postflow-social/postflow/internal/pkg/metrics"
	"github.com/postflow-social/postflow/internal/pkg/queue"
	pkgredis "github.com/postflow-social/postflow/internal/pkg/redis"
	"github.com/postflow-social/postflow/internal/publisher"
	"github.com/postflow-social/postflow/internal/publisher/platforms"
	"github.com/postflow-social/postflow/internal/scheduler"
	schedmetrics "github.com/postflow-social/postflow/internal/scheduler/metrics"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.App.Environment, cfg.App.Debug)

	log.Info().
		Str("app", cfg.App.Name).
		Str("service", "scheduler").
		Msg("Starting scheduler service")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisClient, err := pkgredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	queueClient := queue.NewClient(&cfg.Redis)
	defer queueClient.Close()

	schedulerCfg := &scheduler.Config{
		PollInterval:    cfg.Scheduler.PollInterval,
		BatchSize:       cfg.Scheduler.BatchSize,
		ClaimWindow:     cfg.Scheduler.ClaimWindow,
		DispatchMode:    cfg.Scheduler.DispatchMode,
		GlobalRateLimit: cfg.Scheduler.GlobalRateLimit,
		UserRateLimit:   cfg.Scheduler.UserRateLimit,
		LeaderKey:       cfg.Scheduler.LeaderKey,
		LeaderTTL:       cfg.Scheduler.LeaderTTL,
		StuckThreshold:  cfg.Scheduler.StuckThreshold,
		CleanupInterval: cfg.Scheduler.CleanupInterval,
		RetentionDays:   cfg.Scheduler.RetentionDays,
		ShutdownTimeout: cfg.Scheduler.ShutdownTimeout,
	}

	deps := &scheduler.Dependencies{
		DB:    db,
		Redis: redisClient,
		Queue: queueClient,
	}

	// Local mode executes posts in-process instead of enqueueing.
	if cfg.Scheduler.DispatchMode == scheduler.DispatchModeLocal {
		pgStore := store.NewPostgresStore(db)
		quota := publisher.NewPostQuota(pgStore, cfg.Publisher.MonthlyPostLimit)
		deps.Runner = publisher.NewRunner(pgStore, platforms.DefaultRegistry(), quota, cfg.Publisher.PublishTimeout)
	}

	s, err := scheduler.New(schedulerCfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build scheduler")
	}

	if err := s.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	httpServer := newHTTPServer(cfg.Server.Addr(), s)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if err := s.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping scheduler")
	}

	log.Info().Msg("Scheduler stopped")
}

func newHTTPServer(addr string, s *scheduler.Scheduler) *http.Server {
	exporter := schedmetrics.NewExporter(s.Metrics())

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/stats", exporter.Handler())
	mux.HandleFunc("/health", exporter.Health())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
