package circuitbreaker

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("graph.facebook.com", Config{FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
		b.Record(false)
	}

	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := New("api.twitter.com", Config{FailureThreshold: 2, Cooldown: time.Minute})

	require.NoError(t, b.Allow())
	b.Record(false)
	require.NoError(t, b.Allow())
	b.Record(true)
	require.NoError(t, b.Allow())
	b.Record(false)

	assert.Equal(t, StateClosed, b.State())
}

func TestProbesAfterCooldownThenCloses(t *testing.T) {
	b := New("api.linkedin.com", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         10 * time.Millisecond,
		MaxProbes:        1,
	})

	require.NoError(t, b.Allow())
	b.Record(false)
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrOpen)

	time.Sleep(20 * time.Millisecond)

	// One probe is admitted, further calls wait for its outcome.
	require.NoError(t, b.Allow())
	require.ErrorIs(t, b.Allow(), ErrOpen)

	b.Record(true)
	assert.Equal(t, StateClosed, b.State())
}

func TestFailedProbeReopens(t *testing.T) {
	b := New("graph.facebook.com", Config{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	require.NoError(t, b.Allow())
	b.Record(false)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	b.Record(false)

	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestDoCountsServerErrorsAsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b := New("degraded.example.com", Config{FailureThreshold: 1, Cooldown: time.Minute})

	resp, err := b.Do(func() (*http.Response, error) {
		return server.Client().Get(server.URL)
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, StateOpen, b.State())

	_, err = b.Do(func() (*http.Response, error) {
		t.Fatal("call must not run while open")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestManagerIsolatesHosts(t *testing.T) {
	m := NewManager(Config{FailureThreshold: 1, Cooldown: time.Minute})

	fb := m.Get("graph.facebook.com")
	require.NoError(t, fb.Allow())
	fb.Record(false)

	assert.Equal(t, StateOpen, fb.State())
	assert.Equal(t, StateClosed, m.Get("api.linkedin.com").State())
	assert.Same(t, fb, m.Get("graph.facebook.com"))
}
