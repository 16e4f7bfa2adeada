package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postflow-social/postflow/internal/domain/models"
	"gorm.io/gorm"
)

type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*Schedule, error) {
	var schedules []models.Schedule

	err := s.db.WithContext(ctx).
		Where("status = ? AND is_paused = ?", models.ScheduleStatusEnabled, false).
		Where("last_run_at IS NULL OR last_run_at < ?", now.Add(-window)).
		Limit(limit).
		Find(&schedules).Error

	if err != nil {
		return nil, err
	}

	return s.toSchedules(schedules), nil
}

func (s *PostgresStore) FindRetryCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*Schedule, error) {
	var schedules []models.Schedule

	err := s.db.WithContext(ctx).
		Distinct("schedules.*").
		Joins("JOIN posts ON posts.schedule_id = schedules.id").
		Where("schedules.status = ? AND schedules.is_paused = ?", models.ScheduleStatusEnabled, false).
		Where("schedules.last_run_at IS NULL OR schedules.last_run_at < ?", now.Add(-window)).
		Where("posts.status = ? AND posts.deleted_at IS NULL", models.PostStatusScheduled).
		Where("posts.scheduled_at IS NULL OR posts.scheduled_at <= ?", now).
		Limit(limit).
		Find(&schedules).Error

	if err != nil {
		return nil, err
	}

	return s.toSchedules(schedules), nil
}

func (s *PostgresStore) TryClaim(ctx context.Context, id uuid.UUID, now time.Time, window time.Duration) (bool, error) {
	cutoff := now.Add(-window)

	result := s.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ? AND status = ? AND is_paused = ? AND (last_run_at IS NULL OR last_run_at < ?)",
			id, models.ScheduleStatusEnabled, false, cutoff).
		Update("last_run_at", now)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	var schedule models.Schedule
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.toSchedule(&schedule), nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, post *Post) error {
	row := s.fromPost(post)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	post.ID = row.ID
	return nil
}

func (s *PostgresStore) ClaimPost(ctx context.Context, postID uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND status = ?", postID, models.PostStatusScheduled).
		Update("status", models.PostStatusPublishing)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (s *PostgresStore) UpdatePostStatus(ctx context.Context, postID uuid.UUID, status string, publishedAt *time.Time, publishedPlatforms []string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if publishedAt != nil {
		updates["published_at"] = *publishedAt
	}
	if publishedPlatforms != nil {
		updates["published_platforms"] = models.StringArray(publishedPlatforms)
	}

	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(updates).Error
}

func (s *PostgresStore) FindPostsByScheduleAndStatus(ctx context.Context, scheduleID uuid.UUID, status string) ([]*Post, error) {
	var posts []models.Post

	err := s.db.WithContext(ctx).
		Where("schedule_id = ? AND status = ?", scheduleID, status).
		Order("created_at DESC").
		Find(&posts).Error

	if err != nil {
		return nil, err
	}

	return s.toPosts(posts), nil
}

func (s *PostgresStore) FindStuckPublishing(ctx context.Context, olderThan time.Duration) ([]*Post, error) {
	cutoff := time.Now().Add(-olderThan)

	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.PostStatusPublishing, cutoff).
		Find(&posts).Error

	if err != nil {
		return nil, err
	}

	return s.toPosts(posts), nil
}

func (s *PostgresStore) FindActiveCredential(ctx context.Context, userID uuid.UUID, platform string) (*Credential, error) {
	var account models.SocialAccount

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND account_status = ? AND access_token <> ''",
			userID, platform, models.AccountStatusActive).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Credential{
		UserID:      account.UserID,
		Platform:    account.Platform,
		AccessToken: account.AccessToken,
	}, nil
}

func (s *PostgresStore) CountPublishedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ? AND status = ? AND published_at >= ?", userID, models.PostStatusPublished, since).
		Count(&count).Error
	return count, err
}

func (s *PostgresStore) toSchedules(rows []models.Schedule) []*Schedule {
	result := make([]*Schedule, len(rows))
	for i := range rows {
		result[i] = s.toSchedule(&rows[i])
	}
	return result
}

func (s *PostgresStore) toSchedule(m *models.Schedule) *Schedule {
	return &Schedule{
		ID:             m.ID,
		UserID:         m.UserID,
		Platforms:      m.Platforms,
		Days:           m.Days,
		Times:          m.Times,
		CustomDateFrom: m.CustomDateFrom,
		CustomDateTo:   m.CustomDateTo,
		SingleDate:     m.SingleDate,
		Timezone:       m.Timezone,
		Content:        m.Content,
		ImageURL:       m.ImageURL,
		Status:         m.Status,
		IsPaused:       m.IsPaused,
		LastRunAt:      m.LastRunAt,
	}
}

func (s *PostgresStore) toPosts(rows []models.Post) []*Post {
	result := make([]*Post, len(rows))
	for i := range rows {
		m := &rows[i]
		result[i] = &Post{
			ID:                 m.ID,
			ScheduleID:         m.ScheduleID,
			UserID:             m.UserID,
			Platforms:          m.Platforms,
			Content:            m.Content,
			ImageURL:           m.ImageURL,
			Status:             m.Status,
			PublishedPlatforms: m.PublishedPlatforms,
			ScheduledAt:        m.ScheduledAt,
			PublishedAt:        m.PublishedAt,
		}
	}
	return result
}

func (s *PostgresStore) fromPost(p *Post) *models.Post {
	row := &models.Post{
		ID:          p.ID,
		ScheduleID:  p.ScheduleID,
		UserID:      p.UserID,
		Platforms:   models.StringArray(p.Platforms),
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		Status:      p.Status,
		ScheduledAt: p.ScheduledAt,
		PublishedAt: p.PublishedAt,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return row
}
