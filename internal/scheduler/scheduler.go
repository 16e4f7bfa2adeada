// Package scheduler wires the dispatch loop, leader election, recovery
// sweeps and rate limiting into one process. Only the elected leader
// polls; followers idle until the Redis lock frees up. Leadership is
// a conflict-avoidance optimization, never a correctness requirement:
// the store's claim compare-and-swap stays safe with multiple pollers.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/postflow-social/postflow/internal/pkg/queue"
	pkgredis "github.com/postflow-social/postflow/internal/pkg/redis"
	"github.com/postflow-social/postflow/internal/publisher"
	"github.com/postflow-social/postflow/internal/scheduler/dispatcher"
	"github.com/postflow-social/postflow/internal/scheduler/leader"
	"github.com/postflow-social/postflow/internal/scheduler/metrics"
	"github.com/postflow-social/postflow/internal/scheduler/poller"
	"github.com/postflow-social/postflow/internal/scheduler/recovery"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

type Scheduler struct {
	config *Config

	election     *leader.Election
	poller       *poller.Poller
	dispatcher   dispatcher.Dispatcher
	localDisp    *dispatcher.LocalDispatcher
	dispStats    func() dispatcher.Stats
	stuckRecov   *recovery.StuckPosts
	cleanup      *recovery.Cleanup
	backpressure *dispatcher.BackpressureMonitor
	metrics      *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Dependencies struct {
	DB    *gorm.DB
	Redis *pkgredis.Client
	Queue *queue.Client

	// Runner is required in local dispatch mode; queue mode leaves
	// execution to the worker fleet.
	Runner *publisher.Runner
}

func New(cfg *Config, deps *Dependencies) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	// The poller always re-reads schedules fresh; eligibility drift
	// between claim and execution must be visible, so no read cache
	// sits in front of the store.
	pgStore := store.NewPostgresStore(deps.DB)

	election := leader.NewElection(deps.Redis, cfg.LeaderKey, cfg.LeaderTTL)

	s := &Scheduler{
		config:   cfg,
		election: election,
		metrics:  metrics.NewCollector(),
		ctx:      ctx,
		cancel:   cancel,
	}

	switch cfg.DispatchMode {
	case DispatchModeLocal:
		if deps.Runner == nil {
			cancel()
			return nil, fmt.Errorf("local dispatch mode requires a runner")
		}
		runner := deps.Runner
		local := dispatcher.NewLocalDispatcher(func(ctx context.Context, scheduleID uuid.UUID, claimedAt time.Time) error {
			_, err := runner.Run(ctx, scheduleID, claimedAt)
			return err
		})
		s.dispatcher = local
		s.localDisp = local
		s.dispStats = local.Stats

	default:
		globalLimiter := dispatcher.NewSlidingWindowLimiter(
			deps.Redis, "postflow:ratelimit:global", cfg.GlobalRateLimit, time.Minute,
		)
		userLimiter := dispatcher.NewSlidingWindowLimiter(
			deps.Redis, "postflow:ratelimit:user", cfg.UserRateLimit, time.Minute,
		)
		qd := dispatcher.NewQueueDispatcher(deps.Queue, globalLimiter, userLimiter)
		s.dispatcher = qd
		s.dispStats = qd.Stats

		bp := dispatcher.NewBackpressureMonitor(deps.Redis, "asynq:queues:default", 10000)
		s.backpressure = bp
	}

	s.poller = poller.NewPoller(pgStore, s.dispatcher, cfg.BatchSize, cfg.PollInterval, cfg.ClaimWindow)
	if s.backpressure != nil {
		s.poller.SetBackpressure(s.backpressure)
	}

	s.stuckRecov = recovery.NewStuckPosts(pgStore, cfg.StuckThreshold)
	s.cleanup = recovery.NewCleanup(deps.DB, cfg.RetentionDays, cfg.CleanupInterval)

	return s, nil
}

func (s *Scheduler) Start() error {
	log.Info().
		Str("dispatch_mode", s.config.DispatchMode).
		Str("leader_key", s.config.LeaderKey).
		Dur("poll_interval", s.config.PollInterval).
		Dur("claim_window", s.config.ClaimWindow).
		Int("batch_size", s.config.BatchSize).
		Msg("Starting scheduler")

	s.wg.Add(1)
	go s.leaderLoop()

	if s.backpressure != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.backpressure.Start(s.ctx)
		}()
	}

	return nil
}

func (s *Scheduler) Stop() error {
	log.Info().Msg("Stopping scheduler...")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		if s.localDisp != nil {
			s.localDisp.Drain()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Scheduler stopped gracefully")
	case <-time.After(s.config.ShutdownTimeout):
		log.Warn().Msg("Scheduler shutdown timed out")
	}

	s.election.Release(context.Background())

	return nil
}

func (s *Scheduler) leaderLoop() {
	defer s.wg.Done()

	extendTicker := time.NewTicker(s.config.LeaderTTL / 3)
	defer extendTicker.Stop()

	acquireTicker := time.NewTicker(5 * time.Second)
	defer acquireTicker.Stop()

	var pollerCancel context.CancelFunc
	var recoveryCancel context.CancelFunc
	var cleanupCancel context.CancelFunc

	stopWorkers := func() {
		if pollerCancel != nil {
			pollerCancel()
			pollerCancel = nil
		}
		if recoveryCancel != nil {
			recoveryCancel()
			recoveryCancel = nil
		}
		if cleanupCancel != nil {
			cleanupCancel()
			cleanupCancel = nil
		}
	}

	startWorkers := func() {
		var pollerCtx, recoveryCtx, cleanupCtx context.Context

		pollerCtx, pollerCancel = context.WithCancel(s.ctx)
		recoveryCtx, recoveryCancel = context.WithCancel(s.ctx)
		cleanupCtx, cleanupCancel = context.WithCancel(s.ctx)

		s.wg.Add(3)
		go func() {
			defer s.wg.Done()
			s.poller.Run(pollerCtx)
		}()
		go func() {
			defer s.wg.Done()
			s.stuckRecov.Run(recoveryCtx)
		}()
		go func() {
			defer s.wg.Done()
			s.cleanup.Run(cleanupCtx)
		}()
	}

	for {
		select {
		case <-s.ctx.Done():
			stopWorkers()
			return

		case <-acquireTicker.C:
			if !s.election.IsLeader() {
				acquired, err := s.election.TryAcquire(s.ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to acquire leadership")
					continue
				}
				if acquired {
					s.metrics.SetLeader(true)
					startWorkers()
				}
			}

		case <-extendTicker.C:
			if s.election.IsLeader() {
				if !s.election.Extend(s.ctx) {
					log.Warn().Msg("Lost leadership")
					s.metrics.SetLeader(false)
					stopWorkers()
				}
			}
		}
	}
}

func (s *Scheduler) IsLeader() bool {
	return s.election.IsLeader()
}

func (s *Scheduler) Metrics() *metrics.Collector {
	return s.metrics
}

func (s *Scheduler) Health() map[string]interface{} {
	snapshot := s.metrics.Snapshot()
	pollerStats := s.poller.Stats()
	dispatcherStats := s.dispStats()

	health := map[string]interface{}{
		"is_leader":        snapshot.IsLeader,
		"uptime_seconds":   int64(snapshot.Uptime.Seconds()),
		"polls_total":      pollerStats.PollCount,
		"last_poll_at":     pollerStats.LastPollAt,
		"dispatched_total": dispatcherStats.Dispatched,
		"skipped_total":    dispatcherStats.Skipped,
		"failed_total":     dispatcherStats.Failed,
	}
	if s.backpressure != nil {
		health["queue_depth"] = s.backpressure.QueueDepth()
	}
	return health
}
