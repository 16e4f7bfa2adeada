package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Cleanup prunes old published posts past the retention horizon.
type Cleanup struct {
	db            *gorm.DB
	retentionDays int
	interval      time.Duration
}

func NewCleanup(db *gorm.DB, retentionDays int, interval time.Duration) *Cleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleanup{
		db:            db,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

func (c *Cleanup) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleanup) cleanup(ctx context.Context) {
	if c.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -c.retentionDays)

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM posts WHERE status = 'published' AND published_at < ?", cutoff)

	if result.Error != nil {
		log.Error().Err(result.Error).Msg("Failed to cleanup old published posts")
		return
	}

	if result.RowsAffected > 0 {
		log.Info().
			Int64("deleted", result.RowsAffected).
			Int("retention_days", c.retentionDays).
			Msg("Cleaned up old published posts")
	}
}

// CleanupOnce runs a single pruning pass.
func (c *Cleanup) CleanupOnce(ctx context.Context) {
	c.cleanup(ctx)
}
