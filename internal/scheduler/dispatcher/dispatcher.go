package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/pkg/queue"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

// Dispatcher hands a freshly claimed schedule to an execution unit.
// Dispatch is fire-and-forget: the poller never waits for the run to
// finish, and a failed run surfaces through the post state machine on
// the next matching tick rather than through the dispatcher.
type Dispatcher interface {
	// Admit reports whether a run may be dispatched right now. The
	// poller consults it before claiming, so a rate-limited tick never
	// advances the watermark and the slot is retried on the next tick.
	Admit(ctx context.Context, schedule *store.Schedule) bool

	Dispatch(ctx context.Context, schedule *store.Schedule, claimedAt time.Time) *DispatchResult
}

type DispatchResult struct {
	ScheduleID string
	Success    bool
	Error      error
}

// QueueDispatcher enqueues schedule runs onto the asynq queue for the
// worker fleet, with global and per-user rate limits in front.
type QueueDispatcher struct {
	queue         *queue.Client
	globalLimiter RateLimiter
	userLimiter   RateLimiter

	dispatched atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

func NewQueueDispatcher(queueClient *queue.Client, globalLimiter, userLimiter RateLimiter) *QueueDispatcher {
	return &QueueDispatcher{
		queue:         queueClient,
		globalLimiter: globalLimiter,
		userLimiter:   userLimiter,
	}
}

// Admit consumes a global and a per-user rate-limit token. Denials are
// cheap: nothing was claimed yet, so the schedule stays claimable.
func (d *QueueDispatcher) Admit(ctx context.Context, schedule *store.Schedule) bool {
	if !d.globalLimiter.Allow(ctx, "global") {
		d.skipped.Add(1)
		return false
	}

	userKey := fmt.Sprintf("user:%s", schedule.UserID)
	if !d.userLimiter.Allow(ctx, userKey) {
		d.skipped.Add(1)
		return false
	}

	return true
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, schedule *store.Schedule, claimedAt time.Time) *DispatchResult {
	result := &DispatchResult{ScheduleID: schedule.ID.String()}

	payload := queue.ScheduleRunPayload{
		ScheduleID: schedule.ID,
		UserID:     schedule.UserID,
		ClaimedAt:  claimedAt,
	}

	if _, err := d.queue.EnqueueScheduleRun(ctx, payload); err != nil {
		result.Error = err
		d.failed.Add(1)
		log.Error().
			Err(err).
			Str("schedule_id", schedule.ID.String()).
			Msg("Failed to enqueue schedule run")
		return result
	}

	result.Success = true
	d.dispatched.Add(1)

	log.Debug().
		Str("schedule_id", schedule.ID.String()).
		Msg("Schedule run enqueued")

	return result
}

type Stats struct {
	Dispatched int64
	Skipped    int64
	Failed     int64
}

func (d *QueueDispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Skipped:    d.skipped.Load(),
		Failed:     d.failed.Load(),
	}
}
