package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postflow-social/postflow/internal/scheduler/store"
)

func TestStuckPostsAreRevertedToScheduled(t *testing.T) {
	s := store.NewMemoryStore()

	stuck := &store.Post{UserID: uuid.New(), Status: "publishing"}
	require.NoError(t, s.CreatePost(context.Background(), stuck))
	s.TouchPost(stuck.ID, time.Now().Add(-10*time.Minute))

	fresh := &store.Post{UserID: uuid.New(), Status: "publishing"}
	require.NoError(t, s.CreatePost(context.Background(), fresh))

	r := NewStuckPosts(s, 5*time.Minute)
	r.RecoverOnce(context.Background())

	recovered, found := s.GetPost(stuck.ID)
	require.True(t, found)
	assert.Equal(t, "scheduled", recovered.Status)

	// A recent publishing post is presumed in-flight and left alone.
	untouched, found := s.GetPost(fresh.ID)
	require.True(t, found)
	assert.Equal(t, "publishing", untouched.Status)
}

func TestRecoverOnceWithNothingStuck(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewStuckPosts(s, 5*time.Minute)

	assert.NotPanics(t, func() {
		r.RecoverOnce(context.Background())
	})
}
