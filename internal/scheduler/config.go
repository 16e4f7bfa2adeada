package scheduler

import (
	"fmt"
	"time"
)

// Dispatch modes.
const (
	DispatchModeQueue = "queue" // enqueue runs for the worker fleet
	DispatchModeLocal = "local" // run in-process goroutines
)

type Config struct {
	// Polling. Recurrence matching is minute-exact, so PollInterval
	// must stay at or below one minute.
	PollInterval time.Duration
	BatchSize    int

	// ClaimWindow guards against double-fires between instances. It
	// must stay below one minute or back-to-back slots (23:59 then
	// 00:00) would be swallowed by the previous claim.
	ClaimWindow time.Duration

	// Dispatch
	DispatchMode    string
	GlobalRateLimit int // per minute
	UserRateLimit   int // per minute per user

	// Leader Election
	LeaderKey string
	LeaderTTL time.Duration

	// Recovery
	StuckThreshold  time.Duration
	CleanupInterval time.Duration
	RetentionDays   int

	// Shutdown
	ShutdownTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		PollInterval:    30 * time.Second,
		BatchSize:       100,
		ClaimWindow:     45 * time.Second,
		DispatchMode:    DispatchModeQueue,
		GlobalRateLimit: 1000,
		UserRateLimit:   60,
		LeaderKey:       "postflow:scheduler:leader",
		LeaderTTL:       30 * time.Second,
		StuckThreshold:  5 * time.Minute,
		CleanupInterval: time.Hour,
		RetentionDays:   90,
		ShutdownTimeout: 30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 || c.PollInterval > time.Minute {
		c.PollInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.ClaimWindow <= 0 || c.ClaimWindow >= time.Minute {
		c.ClaimWindow = 45 * time.Second
	}
	switch c.DispatchMode {
	case DispatchModeQueue, DispatchModeLocal:
	case "":
		c.DispatchMode = DispatchModeQueue
	default:
		return fmt.Errorf("unknown dispatch mode %q", c.DispatchMode)
	}
	if c.GlobalRateLimit <= 0 {
		c.GlobalRateLimit = 1000
	}
	if c.UserRateLimit <= 0 {
		c.UserRateLimit = 60
	}
	if c.LeaderKey == "" {
		c.LeaderKey = "postflow:scheduler:leader"
	}
	if c.LeaderTTL <= 0 {
		c.LeaderTTL = 30 * time.Second
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 5 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return nil
}
