package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/scheduler/store"
)

// RunFunc executes one claimed schedule at the claim instant.
type RunFunc func(ctx context.Context, scheduleID uuid.UUID, claimedAt time.Time) error

// LocalDispatcher runs each claimed schedule on its own goroutine in
// the same process, for deployments without a worker fleet. A panic in
// one run never takes down the dispatch loop.
type LocalDispatcher struct {
	run RunFunc
	wg  sync.WaitGroup

	dispatched atomic.Int64
	failed     atomic.Int64
}

func NewLocalDispatcher(run RunFunc) *LocalDispatcher {
	return &LocalDispatcher{run: run}
}

// Admit always allows; local runs are bounded by the claim window and
// the per-platform limiters further down, not by dispatch throughput.
func (d *LocalDispatcher) Admit(ctx context.Context, schedule *store.Schedule) bool {
	return true
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, schedule *store.Schedule, claimedAt time.Time) *DispatchResult {
	result := &DispatchResult{ScheduleID: schedule.ID.String(), Success: true}
	d.dispatched.Add(1)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.failed.Add(1)
				log.Error().
					Interface("panic", rec).
					Str("schedule_id", schedule.ID.String()).
					Msg("Panic in local schedule run")
			}
		}()

		if err := d.run(context.WithoutCancel(ctx), schedule.ID, claimedAt); err != nil {
			d.failed.Add(1)
			log.Error().
				Err(err).
				Str("schedule_id", schedule.ID.String()).
				Msg("Local schedule run failed")
		}
	}()

	return result
}

// Drain blocks until every in-flight run has finished.
func (d *LocalDispatcher) Drain() {
	d.wg.Wait()
}

func (d *LocalDispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Failed:     d.failed.Load(),
	}
}
