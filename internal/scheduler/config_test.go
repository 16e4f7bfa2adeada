package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 45*time.Second, cfg.ClaimWindow)
	assert.Equal(t, DispatchModeQueue, cfg.DispatchMode)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestValidateCapsPollInterval(t *testing.T) {
	// Minute-exact matching breaks if a tick can skip a whole minute.
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Minute
	require.NoError(t, cfg.Validate())
	assert.LessOrEqual(t, cfg.PollInterval, time.Minute)
}

func TestValidateCapsClaimWindow(t *testing.T) {
	// A window of a minute or more would swallow back-to-back slots.
	cfg := DefaultConfig()
	cfg.ClaimWindow = 2 * time.Minute
	require.NoError(t, cfg.Validate())
	assert.Less(t, cfg.ClaimWindow, time.Minute)
}

func TestValidateRejectsUnknownDispatchMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DispatchMode = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}
