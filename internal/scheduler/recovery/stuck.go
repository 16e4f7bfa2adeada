package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/postflow-social/postflow/internal/domain/models"
	"github.com/postflow-social/postflow/internal/pkg/metrics"
	"github.com/postflow-social/postflow/internal/scheduler/store"
)

// StuckPosts sweeps posts abandoned in publishing, e.g. by a crashed
// worker, and returns them to scheduled so a later tick can retry.
type StuckPosts struct {
	store     store.ScheduleStore
	threshold time.Duration
	interval  time.Duration
}

func NewStuckPosts(scheduleStore store.ScheduleStore, threshold time.Duration) *StuckPosts {
	return &StuckPosts{
		store:     scheduleStore,
		threshold: threshold,
		interval:  time.Minute,
	}
}

func (r *StuckPosts) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run once on start
	r.recover(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.recover(ctx)
		}
	}
}

func (r *StuckPosts) recover(ctx context.Context) {
	stuck, err := r.store.FindStuckPublishing(ctx, r.threshold)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch stuck posts")
		return
	}

	if len(stuck) == 0 {
		return
	}

	recovered := 0
	for _, post := range stuck {
		if err := r.store.UpdatePostStatus(ctx, post.ID, models.PostStatusScheduled, nil, nil); err != nil {
			log.Error().
				Err(err).
				Str("post_id", post.ID.String()).
				Msg("Failed to revert stuck post")
			continue
		}

		recovered++
		metrics.PostsRevertedTotal.Inc()
		log.Warn().
			Str("post_id", post.ID.String()).
			Str("user_id", post.UserID.String()).
			Msg("Reverted stuck publishing post to scheduled")
	}

	if recovered > 0 {
		log.Info().Int("count", recovered).Msg("Recovered stuck posts")
	}
}

// RecoverOnce runs a single sweep.
func (r *StuckPosts) RecoverOnce(ctx context.Context) {
	r.recover(ctx)
}
