// Package circuitbreaker guards outbound platform API calls. Each
// platform host gets its own breaker: repeated failures cut traffic to
// that host for a cooldown, then a bounded number of probe requests
// decide whether it recovered. A flapping Facebook never blocks a
// healthy LinkedIn.
package circuitbreaker

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrOpen is returned instead of making a call while a host is cut off.
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config tunes one breaker. Zero values fall back to defaults sized
// for social platform APIs.
type Config struct {
	FailureThreshold int           // consecutive failures that open the breaker
	SuccessThreshold int           // probe successes that close it again
	Cooldown         time.Duration // open duration before probing starts
	MaxProbes        int           // in-flight probes allowed while half-open
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.MaxProbes <= 0 {
		c.MaxProbes = 1
	}
	return c
}

// Breaker tracks the health of calls to one host.
type Breaker struct {
	host string
	cfg  Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

func New(host string, cfg Config) *Breaker {
	return &Breaker{host: host, cfg: cfg.withDefaults()}
}

// Allow reports whether a call may proceed. An open breaker refuses
// with ErrOpen until its cooldown passes, then admits up to MaxProbes
// concurrent probe calls.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.successes = 0
		log.Info().Str("host", b.host).Msg("Circuit half-open, probing")
		fallthrough
	case StateHalfOpen:
		if b.probes >= b.cfg.MaxProbes {
			return ErrOpen
		}
		b.probes++
	}
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case StateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		if !ok {
			b.trip()
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			log.Info().Str("host", b.host).Msg("Circuit closed")
		}
	}
}

// trip is called with b.mu held.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.failures = 0
	log.Warn().
		Str("host", b.host).
		Dur("cooldown", b.cfg.Cooldown).
		Msg("Circuit opened")
}

// Do runs one HTTP call under the breaker. A 5xx response counts as a
// failure even though the transport succeeded: the platform is
// degrading and more traffic only digs the hole deeper.
func (b *Breaker) Do(call func() (*http.Response, error)) (*http.Response, error) {
	if err := b.Allow(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.host, err)
	}

	resp, err := call()
	b.Record(err == nil && resp.StatusCode < http.StatusInternalServerError)
	return resp, err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Host() string {
	return b.host
}

// Manager hands out one breaker per host, created on first use.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[string]*Breaker
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

func (m *Manager) Get(host string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breakers[host]
	if !ok {
		b = New(host, m.cfg)
		m.breakers[host] = b
	}
	return b
}
