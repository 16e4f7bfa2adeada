package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/postflow-social/postflow/internal/recurrence"
)

// Schedule is the engine's view of a schedule row.
type Schedule struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Platforms      []string
	Days           []string
	Times          map[string]interface{}
	CustomDateFrom *time.Time
	CustomDateTo   *time.Time
	SingleDate     *time.Time
	Timezone       string
	Content        string
	ImageURL       *string
	Status         string
	IsPaused       bool
	LastRunAt      *time.Time
}

// IsEligible reports whether the schedule may be claimed or executed.
func (s *Schedule) IsEligible() bool {
	return s.Status == "1" && !s.IsPaused
}

// Rule parses the schedule's recurrence payload. Parsing is fail-soft;
// a malformed payload yields a rule that matches nothing.
func (s *Schedule) Rule() *recurrence.Rule {
	return recurrence.New(recurrence.Config{
		Days:           s.Days,
		Times:          s.Times,
		CustomDateFrom: s.CustomDateFrom,
		CustomDateTo:   s.CustomDateTo,
		SingleDate:     s.SingleDate,
		Timezone:       s.Timezone,
	})
}

// Post is the engine's view of a post row.
type Post struct {
	ID                 uuid.UUID
	ScheduleID         *uuid.UUID
	UserID             uuid.UUID
	Platforms          []string
	Content            string
	ImageURL           *string
	Status             string
	PublishedPlatforms []string
	ScheduledAt        *time.Time
	PublishedAt        *time.Time
}

// Credential is an active platform token for one user.
type Credential struct {
	UserID      uuid.UUID
	Platform    string
	AccessToken string
}

// ScheduleStore is the narrow gateway the scheduling engine uses to
// reach the relational store. All mutation happens through conditional
// updates; correctness under concurrent ticks and multiple scheduler
// instances is delegated to the store's atomic compare-and-swap
// guarantee, never to in-process locks.
type ScheduleStore interface {
	// ListCandidates returns enabled, non-paused schedules whose
	// watermark is older than the claim window, bounded to keep
	// per-tick cost flat. Ordering carries no meaning. Schedules still
	// inside the window would lose the claim anyway; filtering them
	// here keeps claim-conflict churn flat.
	ListCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*Schedule, error)

	// FindRetryCandidates returns claimable schedules that still hold
	// scheduled posts whose time has passed. These are dispatched even
	// when no recurrence slot fires, so a post reverted after a failed
	// publish is retried on later ticks instead of waiting for the next
	// slot (which for a one-shot schedule never comes).
	FindRetryCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*Schedule, error)

	// TryClaim conditionally advances the schedule's last_run_at
	// watermark to now, provided the schedule is still eligible and its
	// previous claim is older than the claim window. Returns true iff
	// exactly one row changed. A false return is a claim conflict, not
	// an error: some other tick or instance owns the schedule.
	TryClaim(ctx context.Context, id uuid.UUID, now time.Time, window time.Duration) (bool, error)

	// GetByID re-fetches a schedule fresh. Returns (nil, nil) when the
	// schedule no longer exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// CreatePost inserts a new post row.
	CreatePost(ctx context.Context, post *Post) error

	// ClaimPost conditionally moves a post from scheduled to
	// publishing. Returns true iff exactly one row changed.
	ClaimPost(ctx context.Context, postID uuid.UUID) (bool, error)

	// UpdatePostStatus finalizes a post after a publish attempt.
	UpdatePostStatus(ctx context.Context, postID uuid.UUID, status string, publishedAt *time.Time, publishedPlatforms []string) error

	// FindPostsByScheduleAndStatus lists posts linked to a schedule in
	// the given state, newest first.
	FindPostsByScheduleAndStatus(ctx context.Context, scheduleID uuid.UUID, status string) ([]*Post, error)

	// FindStuckPublishing lists posts left in publishing longer than
	// olderThan, e.g. by a crashed execution unit.
	FindStuckPublishing(ctx context.Context, olderThan time.Duration) ([]*Post, error)

	// FindActiveCredential returns the user's active credential for a
	// platform, or (nil, nil) when there is none.
	FindActiveCredential(ctx context.Context, userID uuid.UUID, platform string) (*Credential, error)

	// CountPublishedSince counts a user's published posts since the
	// given instant, for quota checks.
	CountPublishedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}
