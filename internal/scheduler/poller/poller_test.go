package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postflow-social/postflow/internal/publisher"
	"github.com/postflow-social/postflow/internal/publisher/platforms"
	"github.com/postflow-social/postflow/internal/scheduler/dispatcher"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

type recordingDispatcher struct {
	mu         sync.Mutex
	deny       bool
	dispatched []uuid.UUID
}

func (d *recordingDispatcher) Admit(ctx context.Context, schedule *store.Schedule) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.deny
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, schedule *store.Schedule, claimedAt time.Time) *dispatcher.DispatchResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, schedule.ID)
	return &dispatcher.DispatchResult{ScheduleID: schedule.ID.String(), Success: true}
}

func (d *recordingDispatcher) setDeny(deny bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deny = deny
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dispatched)
}

func dailySchedule(times ...string) *store.Schedule {
	entries := make([]interface{}, len(times))
	for i, v := range times {
		entries[i] = v
	}
	return &store.Schedule{
		UserID:   uuid.New(),
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": entries},
		Timezone: "UTC",
		Status:   "1",
	}
}

func TestPollClaimsAndDispatchesDueSchedule(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSchedule(dailySchedule("09:00"))

	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	p.PollOnce(context.Background(), now)

	assert.Equal(t, 1, disp.count())
}

func TestClaimWindowBlocksSecondTickSameMinute(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSchedule(dailySchedule("09:00"))

	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	p.PollOnce(context.Background(), base)
	p.PollOnce(context.Background(), base.Add(30*time.Second))

	// The second tick still falls inside the claim window.
	assert.Equal(t, 1, disp.count())
}

func TestBackToBackMinutesBothDispatch(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSchedule(dailySchedule("23:59", "00:00"))

	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	p.PollOnce(context.Background(), time.Date(2025, 1, 6, 23, 59, 0, 0, time.UTC))
	p.PollOnce(context.Background(), time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 2, disp.count())
}

func TestNotDueScheduleNotDispatched(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSchedule(dailySchedule("09:00"))

	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	p.PollOnce(context.Background(), time.Date(2025, 1, 6, 9, 1, 0, 0, time.UTC))

	assert.Equal(t, 0, disp.count())
}

func TestMalformedScheduleDoesNotAbortTick(t *testing.T) {
	s := store.NewMemoryStore()

	broken := &store.Schedule{
		UserID:   uuid.New(),
		Days:     []string{"whenever"},
		Times:    map[string]interface{}{"whenever": 42},
		Timezone: "Nope/Nope",
		Status:   "1",
	}
	s.AddSchedule(broken)
	s.AddSchedule(dailySchedule("09:00"))

	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	require.NotPanics(t, func() {
		p.PollOnce(context.Background(), time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	})
	assert.Equal(t, 1, disp.count())
}

func TestPendingPostMakesScheduleARetryCandidate(t *testing.T) {
	s := store.NewMemoryStore()
	id := s.AddSchedule(dailySchedule("09:00"))

	nineAM := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	post := &store.Post{
		ScheduleID:  &id,
		UserID:      uuid.New(),
		Status:      "scheduled",
		ScheduledAt: &nineAM,
	}
	require.NoError(t, s.CreatePost(context.Background(), post))

	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	// 09:05 matches no slot, but the leftover scheduled post must still
	// get the schedule claimed and dispatched.
	p.PollOnce(context.Background(), nineAM.Add(5*time.Minute))

	assert.Equal(t, 1, disp.count())
}

func TestDeniedAdmissionLeavesScheduleClaimable(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSchedule(dailySchedule("09:00"))

	disp := &recordingDispatcher{}
	disp.setDeny(true)
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	p.PollOnce(context.Background(), base)
	assert.Equal(t, 0, disp.count())

	// The denied tick must not have burned the watermark: the same
	// minute still dispatches once capacity returns.
	disp.setDeny(false)
	p.PollOnce(context.Background(), base.Add(30*time.Second))
	assert.Equal(t, 1, disp.count())
}

type fixedAdapter struct {
	name string
}

func (a *fixedAdapter) Platform() string { return a.name }

func (a *fixedAdapter) Publish(ctx context.Context, accessToken, content, imageURL string) (*platforms.Result, error) {
	return &platforms.Result{Platform: a.name, RemoteID: "remote-1"}, nil
}

func TestRevertedOneShotPostPublishedOnLaterTick(t *testing.T) {
	s := store.NewMemoryStore()

	userID := uuid.New()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.AddSchedule(&store.Schedule{
		UserID:     userID,
		Platforms:  []string{"facebook"},
		Days:       []string{"single_date"},
		Times:      map[string]interface{}{"single_date": []interface{}{"14:30"}},
		SingleDate: &day,
		Timezone:   "UTC",
		Content:    "launch day",
		Status:     "1",
	})

	registry := platforms.NewRegistry()
	registry.Register(&fixedAdapter{name: "facebook"}, 100, 10)
	runner := publisher.NewRunner(s, registry, nil, time.Second)

	local := dispatcher.NewLocalDispatcher(func(ctx context.Context, scheduleID uuid.UUID, claimedAt time.Time) error {
		_, err := runner.Run(ctx, scheduleID, claimedAt)
		return err
	})
	p := NewPoller(s, local, 100, 30*time.Second, 45*time.Second)

	// The only slot fires with no credential on file: the post is
	// created, claimed, and reverted to scheduled.
	slot := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	p.PollOnce(context.Background(), slot)
	local.Drain()

	posts := s.Posts()
	require.Len(t, posts, 1)
	require.Equal(t, "scheduled", posts[0].Status)

	// The credential arrives after the one-shot slot has passed. The
	// post must still be retried on a later tick via the sweep.
	s.AddCredential(&store.Credential{UserID: userID, Platform: "facebook", AccessToken: "tok"})

	p.PollOnce(context.Background(), slot.Add(2*time.Minute))
	local.Drain()

	stored, ok := s.GetPost(posts[0].ID)
	require.True(t, ok)
	assert.Equal(t, "published", stored.Status)
	assert.NotNil(t, stored.PublishedAt)
	assert.Len(t, s.Posts(), 1)
}

func TestStatsTrackPolls(t *testing.T) {
	s := store.NewMemoryStore()
	disp := &recordingDispatcher{}
	p := NewPoller(s, disp, 100, 30*time.Second, 45*time.Second)

	p.PollOnce(context.Background(), time.Now())
	p.PollOnce(context.Background(), time.Now())

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.PollCount)
	assert.False(t, stats.LastPollAt.IsZero())
}
