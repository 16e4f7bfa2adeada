package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/postflow-social/postflow/internal/scheduler/store"
)

func TestLocalDispatcherRunsAndDrains(t *testing.T) {
	var mu sync.Mutex
	var ran []uuid.UUID

	d := NewLocalDispatcher(func(ctx context.Context, scheduleID uuid.UUID, claimedAt time.Time) error {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, scheduleID)
		return nil
	})

	sched := &store.Schedule{ID: uuid.New(), UserID: uuid.New()}
	result := d.Dispatch(context.Background(), sched, time.Now())
	assert.True(t, result.Success)

	d.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uuid.UUID{sched.ID}, ran)
	assert.Equal(t, int64(1), d.Stats().Dispatched)
}

func TestLocalDispatcherIsolatesPanics(t *testing.T) {
	d := NewLocalDispatcher(func(ctx context.Context, scheduleID uuid.UUID, claimedAt time.Time) error {
		panic("run blew up")
	})

	sched := &store.Schedule{ID: uuid.New(), UserID: uuid.New()}

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), sched, time.Now())
		d.Drain()
	})
	assert.Equal(t, int64(1), d.Stats().Failed)
}

func TestLocalDispatcherSurvivesCancelledContext(t *testing.T) {
	done := make(chan struct{})
	d := NewLocalDispatcher(func(ctx context.Context, scheduleID uuid.UUID, claimedAt time.Time) error {
		defer close(done)
		// The dispatch context may be cancelled right after the tick;
		// the run must still complete.
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched := &store.Schedule{ID: uuid.New(), UserID: uuid.New()}
	d.Dispatch(ctx, sched, time.Now())
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not complete")
	}
	d.Drain()
	assert.Equal(t, int64(0), d.Stats().Failed)
}
