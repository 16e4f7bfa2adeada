package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/domain/models"
	"github.com/postflow-social/postflow/internal/pkg/logger"
	"github.com/postflow-social/postflow/internal/pkg/metrics"
	"github.com/postflow-social/postflow/internal/publisher/platforms"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

// RunReport summarizes one execution of a claimed schedule.
type RunReport struct {
	ScheduleID     uuid.UUID
	SlotsMatched   int
	PostsCreated   int
	PostsPublished int
	PostsReverted  int
	PostsSkipped   int
}

// Runner executes one claimed schedule end to end: re-check
// eligibility against fresh state, create posts for every recurrence
// slot that fired, then sweep all still-scheduled posts of the
// schedule through publishing. Each post moves through the state
// machine under compare-and-swap; a post in publishing is always
// finalized before Run returns, even on panic.
type Runner struct {
	store          store.ScheduleStore
	registry       *platforms.Registry
	quota          QuotaChecker
	publishTimeout time.Duration
}

func NewRunner(s store.ScheduleStore, registry *platforms.Registry, quota QuotaChecker, publishTimeout time.Duration) *Runner {
	if quota == nil {
		quota = UnlimitedQuota{}
	}
	if publishTimeout <= 0 {
		publishTimeout = 30 * time.Second
	}
	return &Runner{
		store:          s,
		registry:       registry,
		quota:          quota,
		publishTimeout: publishTimeout,
	}
}

// Run processes one claimed schedule at the claim instant. The claim
// already happened; Run never re-claims and never returns an error for
// conditions the next tick will absorb (schedule deleted, paused,
// publish failures).
func (r *Runner) Run(ctx context.Context, scheduleID uuid.UUID, now time.Time) (*RunReport, error) {
	sLog := logger.WithScheduleID(scheduleID.String())
	report := &RunReport{ScheduleID: scheduleID}

	sched, err := r.store.GetByID(ctx, scheduleID)
	if err != nil {
		return report, fmt.Errorf("failed to load schedule: %w", err)
	}
	if sched == nil {
		sLog.Debug().Msg("Schedule vanished after claim, skipping")
		return report, nil
	}
	if !sched.IsEligible() {
		sLog.Info().
			Str("status", sched.Status).
			Bool("is_paused", sched.IsPaused).
			Msg("Schedule no longer eligible after claim, skipping")
		return report, nil
	}

	slots := sched.Rule().MatchingSlots(now)
	report.SlotsMatched = len(slots)

	for _, slot := range slots {
		post := &store.Post{
			ScheduleID:  &sched.ID,
			UserID:      sched.UserID,
			Platforms:   sched.Platforms,
			Content:     sched.Content,
			ImageURL:    sched.ImageURL,
			Status:      models.PostStatusScheduled,
			ScheduledAt: &now,
		}
		if err := r.store.CreatePost(ctx, post); err != nil {
			sLog.Error().Err(err).
				Str("day", string(slot.Day)).
				Str("time", slot.Time).
				Msg("Failed to create post for slot")
			continue
		}
		report.PostsCreated++
		sLog.Info().
			Str("post_id", post.ID.String()).
			Str("day", string(slot.Day)).
			Str("time", slot.Time).
			Msg("Created post for matched slot")
	}

	// Sweep everything still scheduled under this schedule, including
	// posts left over from earlier failed runs.
	pending, err := r.store.FindPostsByScheduleAndStatus(ctx, scheduleID, models.PostStatusScheduled)
	if err != nil {
		return report, fmt.Errorf("failed to list pending posts: %w", err)
	}

	for _, post := range pending {
		outcome := r.publishPost(ctx, post, now)
		switch outcome {
		case outcomePublished:
			report.PostsPublished++
		case outcomeReverted:
			report.PostsReverted++
		default:
			report.PostsSkipped++
		}
	}

	return report, nil
}

type publishOutcome int

const (
	outcomeSkipped publishOutcome = iota
	outcomePublished
	outcomeReverted
)

// publishPost pushes one post through publishing. The post is claimed
// with a scheduled-to-publishing compare-and-swap; once claimed it is
// guaranteed to leave publishing before this function returns.
func (r *Runner) publishPost(ctx context.Context, post *store.Post, now time.Time) (outcome publishOutcome) {
	pLog := logger.WithPostID(post.ID.String())

	allowed, err := r.quota.Allow(ctx, post.UserID)
	if err != nil {
		pLog.Error().Err(err).Msg("Quota check failed, leaving post scheduled")
		return outcomeSkipped
	}
	if !allowed {
		pLog.Info().Str("user_id", post.UserID.String()).Msg("Monthly post quota reached, leaving post scheduled")
		return outcomeSkipped
	}

	claimed, err := r.store.ClaimPost(ctx, post.ID)
	if err != nil {
		pLog.Error().Err(err).Msg("Post claim failed")
		return outcomeSkipped
	}
	if !claimed {
		pLog.Debug().Msg("Post already claimed elsewhere, skipping")
		return outcomeSkipped
	}

	finalized := false
	defer func() {
		if rec := recover(); rec != nil {
			pLog.Error().Interface("panic", rec).Msg("Panic while publishing post")
			outcome = outcomeReverted
		}
		if finalized {
			return
		}
		// The post must not stay in publishing. Revert with a fresh
		// context in case the caller's was cancelled.
		revertCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.UpdatePostStatus(revertCtx, post.ID, models.PostStatusScheduled, nil, nil); err != nil {
			pLog.Error().Err(err).Msg("Failed to revert post to scheduled")
			return
		}
		metrics.PostsRevertedTotal.Inc()
	}()

	var published []string
	for _, platform := range post.Platforms {
		result := r.publishToPlatform(ctx, post, platform)
		if result {
			published = append(published, platform)
		}
	}

	if len(published) == 0 {
		pLog.Warn().Strs("platforms", post.Platforms).Msg("Post not pushed to any platform, reverting to scheduled")
		return outcomeReverted
	}

	if err := r.store.UpdatePostStatus(ctx, post.ID, models.PostStatusPublished, &now, published); err != nil {
		pLog.Error().Err(err).Msg("Failed to mark post published")
		return outcomeReverted
	}
	finalized = true

	pLog.Info().
		Strs("published_platforms", published).
		Time("published_at", now).
		Msg("Post published")
	return outcomePublished
}

// publishToPlatform attempts one platform and reports success. Missing
// or inactive credentials skip the platform without failing the post.
func (r *Runner) publishToPlatform(ctx context.Context, post *store.Post, platform string) bool {
	pLog := log.With().
		Str("post_id", post.ID.String()).
		Str("platform", platform).
		Logger()

	cred, err := r.store.FindActiveCredential(ctx, post.UserID, platform)
	if err != nil {
		pLog.Error().Err(err).Msg("Credential lookup failed")
		metrics.RecordPublish(platform, "failure", 0)
		return false
	}
	if cred == nil {
		pLog.Debug().Msg("No active credential, skipping platform")
		metrics.RecordPublish(platform, "skipped", 0)
		return false
	}

	imageURL := ""
	if post.ImageURL != nil {
		imageURL = *post.ImageURL
	}

	callCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()

	start := time.Now()
	result, err := r.registry.Publish(callCtx, platform, cred.AccessToken, post.Content, imageURL)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		pLog.Warn().Err(err).Msg("Platform publish failed")
		metrics.RecordPublish(platform, "failure", elapsed)
		return false
	}

	pLog.Info().Str("remote_id", result.RemoteID).Msg("Platform publish succeeded")
	metrics.RecordPublish(platform, "success", elapsed)
	return true
}
