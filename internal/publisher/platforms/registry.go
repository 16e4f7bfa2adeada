package platforms

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Registry maps platform names to adapters and applies a per-platform
// rate limit ahead of every publish call.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	limiters map[string]*rate.Limiter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Register adds an adapter with its rate limit.
// requestsPerSecond bounds sustained throughput, burst the spikes.
func (r *Registry) Register(adapter Adapter, requestsPerSecond float64, burst int) {
	name := strings.ToLower(adapter.Platform())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = adapter
	r.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Get returns the adapter for a platform name, if registered.
func (r *Registry) Get(platform string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[strings.ToLower(platform)]
	return adapter, ok
}

// Platforms lists the registered platform names.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}

// Publish waits for the platform's rate limiter (bounded by ctx) and
// invokes the adapter.
func (r *Registry) Publish(ctx context.Context, platform, accessToken, content, imageURL string) (*Result, error) {
	name := strings.ToLower(platform)

	r.mu.RLock()
	adapter, ok := r.adapters[name]
	limiter := r.limiters[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &PublishError{Platform: platform, Message: "no adapter registered"}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return adapter.Publish(ctx, accessToken, content, imageURL)
}

// DefaultRegistry wires up every supported platform with conservative
// rate limits.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Facebook Graph: ~200 calls/hour per user
	r.Register(NewFacebookAdapter(), 200.0/3600, 5)

	// Instagram content publishing: 25 posts/day per account
	r.Register(NewInstagramAdapter(), 25.0/(24*3600), 2)

	// Twitter: 300 tweets per 3 hours
	r.Register(NewTwitterAdapter(), 300.0/(3*3600), 5)

	// LinkedIn: ~100 requests/day
	r.Register(NewLinkedInAdapter(), 100.0/(24*3600), 3)

	return r
}
