package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/pkg/metrics"
	"github.com/postflow-social/postflow/internal/scheduler/dispatcher"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

// Poller is the dispatch loop. Each tick it lists candidate schedules,
// evaluates their recurrence against the tick instant, claims the due
// ones through the store's watermark compare-and-swap and hands every
// claim it wins to the dispatcher. Matching is minute-exact, so the
// poll interval must stay at or below one minute.
//
// Schedules that still hold scheduled posts whose time has passed are
// claimed too, even when no slot fires: the execution unit's sweep is
// what retries a post reverted after a failed publish, and a one-shot
// schedule would otherwise strand its post forever.
type Poller struct {
	store        store.ScheduleStore
	dispatcher   dispatcher.Dispatcher
	backpressure *dispatcher.BackpressureMonitor

	batchSize    int
	pollInterval time.Duration
	claimWindow  time.Duration

	pollCount   atomic.Int64
	lastPollAt  atomic.Value // time.Time
	lastPollDur atomic.Int64 // milliseconds
}

func NewPoller(
	scheduleStore store.ScheduleStore,
	disp dispatcher.Dispatcher,
	batchSize int,
	pollInterval time.Duration,
	claimWindow time.Duration,
) *Poller {
	p := &Poller{
		store:        scheduleStore,
		dispatcher:   disp,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		claimWindow:  claimWindow,
	}
	p.lastPollAt.Store(time.Time{})
	return p
}

func (p *Poller) SetBackpressure(bp *dispatcher.BackpressureMonitor) {
	p.backpressure = bp
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, time.Now())
		}
	}
}

// poll runs one tick at the given instant. Per-schedule failures are
// logged and skipped; one bad schedule never aborts the tick.
func (p *Poller) poll(ctx context.Context, now time.Time) {
	if p.backpressure != nil && p.backpressure.ShouldPause() {
		log.Debug().Msg("Skipping poll due to backpressure")
		return
	}

	start := time.Now()
	p.pollCount.Add(1)
	metrics.PollsTotal.Inc()

	candidates, err := p.store.ListCandidates(ctx, now, p.claimWindow, p.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list candidate schedules")
		return
	}

	// Retry candidacy is best-effort; a failed lookup costs one tick.
	pendingRetry := make(map[uuid.UUID]bool)
	retryCandidates, err := p.store.FindRetryCandidates(ctx, now, p.claimWindow, p.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list retry candidate schedules")
	} else {
		seen := make(map[uuid.UUID]bool, len(candidates))
		for _, schedule := range candidates {
			seen[schedule.ID] = true
		}
		for _, schedule := range retryCandidates {
			pendingRetry[schedule.ID] = true
			if !seen[schedule.ID] {
				candidates = append(candidates, schedule)
			}
		}
	}

	due := 0
	retries := 0
	claimed := 0
	conflicts := 0
	dispatched := 0
	rateLimited := 0

	for _, schedule := range candidates {
		// Malformed recurrence payloads parse to a rule that matches
		// nothing; they are skipped, never fatal.
		if schedule.Rule().IsDue(now) {
			due++
		} else if pendingRetry[schedule.ID] {
			retries++
		} else {
			continue
		}

		// Admission runs before the claim: a rate-limited schedule
		// keeps its watermark and the slot survives to the next tick.
		if !p.dispatcher.Admit(ctx, schedule) {
			rateLimited++
			log.Debug().
				Str("schedule_id", schedule.ID.String()).
				Msg("Dispatch admission denied, leaving schedule unclaimed")
			continue
		}

		ok, err := p.store.TryClaim(ctx, schedule.ID, now, p.claimWindow)
		if err != nil {
			metrics.RecordClaim("error")
			log.Error().
				Err(err).
				Str("schedule_id", schedule.ID.String()).
				Msg("Schedule claim failed")
			continue
		}
		if !ok {
			conflicts++
			metrics.RecordClaim("conflict")
			log.Debug().
				Str("schedule_id", schedule.ID.String()).
				Msg("Schedule already claimed within window, skipping")
			continue
		}
		claimed++
		metrics.RecordClaim("claimed")

		result := p.dispatcher.Dispatch(ctx, schedule, now)
		if result.Success {
			dispatched++
		}
	}

	p.recordPoll(start)

	if due > 0 || retries > 0 {
		log.Info().
			Int("candidates", len(candidates)).
			Int("due", due).
			Int("retries", retries).
			Int("claimed", claimed).
			Int("conflicts", conflicts).
			Int("dispatched", dispatched).
			Int("rate_limited", rateLimited).
			Dur("duration", time.Since(start)).
			Msg("Poll completed")
	}
}

func (p *Poller) recordPoll(start time.Time) {
	p.lastPollAt.Store(time.Now())
	p.lastPollDur.Store(time.Since(start).Milliseconds())
	metrics.PollDuration.Observe(time.Since(start).Seconds())
}

// PollOnce runs a single tick at the given instant.
func (p *Poller) PollOnce(ctx context.Context, now time.Time) {
	p.poll(ctx, now)
}

type Stats struct {
	PollCount     int64
	LastPollAt    time.Time
	LastPollDurMs int64
}

func (p *Poller) Stats() Stats {
	lastPoll := p.lastPollAt.Load().(time.Time)
	return Stats{
		PollCount:     p.pollCount.Load(),
		LastPollAt:    lastPoll,
		LastPollDurMs: p.lastPollDur.Load(),
	}
}
