package publisher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

// QuotaChecker gates publishing per user. A denied check is not an
// error; the post stays scheduled and the next matching tick retries.
type QuotaChecker interface {
	Allow(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PostQuota limits each user to a fixed number of published posts per
// calendar month. A non-positive limit disables the gate.
type PostQuota struct {
	store store.ScheduleStore
	limit int
}

func NewPostQuota(s store.ScheduleStore, monthlyLimit int) *PostQuota {
	return &PostQuota{store: s, limit: monthlyLimit}
}

func (q *PostQuota) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	if q.limit <= 0 {
		return true, nil
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	count, err := q.store.CountPublishedSince(ctx, userID, monthStart)
	if err != nil {
		return false, err
	}
	return count < int64(q.limit), nil
}

// UnlimitedQuota always allows. Used when no plan limits apply.
type UnlimitedQuota struct{}

func (UnlimitedQuota) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	return true, nil
}
