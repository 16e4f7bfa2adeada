package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/postflow-social/postflow/internal/scheduler/store"
)

func TestLocalLimiterEnforcesWindowLimit(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "user:a"))
	assert.True(t, l.Allow(ctx, "user:a"))
	assert.False(t, l.Allow(ctx, "user:a"))

	// Separate keys have separate windows.
	assert.True(t, l.Allow(ctx, "user:b"))
}

func TestLocalLimiterAllowN(t *testing.T) {
	l := NewLocalLimiter(5, time.Minute)
	ctx := context.Background()

	assert.True(t, l.AllowN(ctx, "global", 5))
	assert.False(t, l.AllowN(ctx, "global", 1))
}

func TestQueueDispatcherAdmitSpendsLimiterTokens(t *testing.T) {
	global := NewLocalLimiter(1, time.Minute)
	user := NewLocalLimiter(10, time.Minute)
	d := NewQueueDispatcher(nil, global, user)

	sched := &store.Schedule{ID: uuid.New(), UserID: uuid.New()}
	ctx := context.Background()

	assert.True(t, d.Admit(ctx, sched))

	// The global budget is spent; the denial happens without touching
	// the queue or the schedule's watermark.
	assert.False(t, d.Admit(ctx, sched))
	assert.Equal(t, int64(1), d.Stats().Skipped)
}

func TestCompositeLimiterRequiresAll(t *testing.T) {
	permissive := NewLocalLimiter(100, time.Minute)
	strict := NewLocalLimiter(1, time.Minute)
	composite := NewCompositeLimiter(permissive, strict)
	ctx := context.Background()

	assert.True(t, composite.Allow(ctx, "k"))
	assert.False(t, composite.Allow(ctx, "k"))
}
