package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postflow-social/postflow/internal/domain/models"
)

// MemoryStore is an in-process ScheduleStore. The claim operations use
// the same compare-and-swap semantics as the conditional UPDATEs in the
// Postgres implementation, which makes it a faithful double for tests
// and single-process deployments.
type MemoryStore struct {
	mu          sync.Mutex
	schedules   map[uuid.UUID]*Schedule
	posts       map[uuid.UUID]*Post
	postUpdated map[uuid.UUID]time.Time
	postOrder   []uuid.UUID
	credentials []*Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules:   make(map[uuid.UUID]*Schedule),
		posts:       make(map[uuid.UUID]*Post),
		postUpdated: make(map[uuid.UUID]time.Time),
	}
}

// AddSchedule seeds a schedule. Assigns an ID when missing.
func (s *MemoryStore) AddSchedule(schedule *Schedule) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	s.schedules[schedule.ID] = schedule
	return schedule.ID
}

// AddCredential seeds an active credential.
func (s *MemoryStore) AddCredential(cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = append(s.credentials, cred)
}

// GetPost returns a copy of a post, for assertions.
func (s *MemoryStore) GetPost(id uuid.UUID) (*Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// Posts returns copies of all posts in insertion order.
func (s *MemoryStore) Posts() []*Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		copied := *s.posts[id]
		out = append(out, &copied)
	}
	return out
}

// TouchPost backdates a post's update time, for stuck-post tests.
func (s *MemoryStore) TouchPost(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postUpdated[id] = at
}

func (s *MemoryStore) ListCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		if !s.claimable(sched, now, window) {
			continue
		}
		copied := *sched
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) FindRetryCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[uuid.UUID]bool)
	for _, post := range s.posts {
		if post.ScheduleID == nil || post.Status != models.PostStatusScheduled {
			continue
		}
		if post.ScheduledAt != nil && post.ScheduledAt.After(now) {
			continue
		}
		pending[*post.ScheduleID] = true
	}

	var out []*Schedule
	for id := range pending {
		sched, ok := s.schedules[id]
		if !ok || !s.claimable(sched, now, window) {
			continue
		}
		copied := *sched
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// claimable mirrors the candidate predicate of the conditional UPDATE.
// Callers hold s.mu.
func (s *MemoryStore) claimable(sched *Schedule, now time.Time, window time.Duration) bool {
	if !sched.IsEligible() {
		return false
	}
	return sched.LastRunAt == nil || sched.LastRunAt.Before(now.Add(-window))
}

func (s *MemoryStore) TryClaim(ctx context.Context, id uuid.UUID, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[id]
	if !ok || !sched.IsEligible() {
		return false, nil
	}
	if sched.LastRunAt != nil && !sched.LastRunAt.Before(now.Add(-window)) {
		return false, nil
	}

	claimed := now
	sched.LastRunAt = &claimed
	return true, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[id]
	if !ok {
		return nil, nil
	}
	copied := *sched
	return &copied, nil
}

func (s *MemoryStore) CreatePost(ctx context.Context, post *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	copied := *post
	s.posts[post.ID] = &copied
	s.postUpdated[post.ID] = time.Now()
	s.postOrder = append(s.postOrder, post.ID)
	return nil
}

func (s *MemoryStore) ClaimPost(ctx context.Context, postID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || post.Status != models.PostStatusScheduled {
		return false, nil
	}
	post.Status = models.PostStatusPublishing
	s.postUpdated[postID] = time.Now()
	return true, nil
}

func (s *MemoryStore) UpdatePostStatus(ctx context.Context, postID uuid.UUID, status string, publishedAt *time.Time, publishedPlatforms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil
	}
	post.Status = status
	if publishedAt != nil {
		post.PublishedAt = publishedAt
	}
	if publishedPlatforms != nil {
		post.PublishedPlatforms = publishedPlatforms
	}
	s.postUpdated[postID] = time.Now()
	return nil
}

func (s *MemoryStore) FindPostsByScheduleAndStatus(ctx context.Context, scheduleID uuid.UUID, status string) ([]*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Post
	for _, id := range s.postOrder {
		post := s.posts[id]
		if post.ScheduleID != nil && *post.ScheduleID == scheduleID && post.Status == status {
			copied := *post
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindStuckPublishing(ctx context.Context, olderThan time.Duration) ([]*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var out []*Post
	for _, id := range s.postOrder {
		post := s.posts[id]
		if post.Status == models.PostStatusPublishing && s.postUpdated[id].Before(cutoff) {
			copied := *post
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.postUpdated[out[i].ID].Before(s.postUpdated[out[j].ID])
	})
	return out, nil
}

func (s *MemoryStore) FindActiveCredential(ctx context.Context, userID uuid.UUID, platform string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cred := range s.credentials {
		if cred.UserID == userID && cred.Platform == platform && cred.AccessToken != "" {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CountPublishedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, post := range s.posts {
		if post.UserID == userID && post.Status == models.PostStatusPublished &&
			post.PublishedAt != nil && !post.PublishedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
