package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/pkg/config"
	"github.com/postflow-social/postflow/internal/pkg/database"
	"github.com/postflow-social/postflow/internal/pkg/httpclient"
	"github.com/postflow-social/postflow/internal/pkg/logger"
	"github.com/postflow-social/postflow/internal/pkg/queue"
	"github.com/postflow-social/postflow/internal/publisher"
	"github.com/postflow-social/postflow/internal/publisher/platforms"
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
		Str("service", "worker").
		Int("concurrency", cfg.Publisher.WorkerConcurrency).
		Msg("Starting worker service")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	pgStore := store.NewPostgresStore(db)
	quota := publisher.NewPostQuota(pgStore, cfg.Publisher.MonthlyPostLimit)
	runner := publisher.NewRunner(pgStore, platforms.DefaultRegistry(), quota, cfg.Publisher.PublishTimeout)

	server := queue.NewServer(&cfg.Redis, cfg.Publisher.WorkerConcurrency)
	server.Use(queue.RecoveryMiddleware(), queue.LoggingMiddleware())
	server.HandleFunc(queue.TypeScheduleRun, handleScheduleRun(runner))

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start queue server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")
	server.Shutdown()
	httpclient.Default().CloseIdleConnections()
	log.Info().Msg("Worker stopped")
}

func handleScheduleRun(runner *publisher.Runner) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload queue.ScheduleRunPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal schedule run payload: %w", err)
		}

		report, err := runner.Run(ctx, payload.ScheduleID, payload.ClaimedAt)
		if err != nil {
			return err
		}

		log.Info().
			Str("schedule_id", payload.ScheduleID.String()).
			Int("slots_matched", report.SlotsMatched).
			Int("posts_created", report.PostsCreated).
			Int("posts_published", report.PostsPublished).
			Int("posts_reverted", report.PostsReverted).
			Int("posts_skipped", report.PostsSkipped).
			Msg("Schedule run completed")

		return nil
	}
}
