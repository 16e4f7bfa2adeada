// Package httpclient provides the shared pooled HTTP client for all
// outbound platform calls, with a circuit breaker per platform host.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/postflow-social/postflow/internal/pkg/circuitbreaker"
)

var (
	defaultClient     *PooledClient
	defaultClientOnce sync.Once
)

type Config struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	ResponseTimeout     time.Duration
	KeepAlive           time.Duration
	DisableKeepAlives   bool
	InsecureSkipVerify  bool
}

func DefaultConfig() Config {
	return Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ResponseTimeout:     30 * time.Second,
		KeepAlive:           30 * time.Second,
		DisableKeepAlives:   false,
		InsecureSkipVerify:  false,
	}
}

type PooledClient struct {
	client   *http.Client
	breakers *circuitbreaker.Manager
}

func NewPooledClient(config Config) *PooledClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		DisableKeepAlives:   config.DisableKeepAlives,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
		ForceAttemptHTTP2: true,
	}

	// One breaker per platform API host. A flapping platform opens its
	// own breaker without touching the others. Platform publish rates
	// are low, so a single probe is enough to confirm recovery.
	return &PooledClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.ResponseTimeout,
		},
		breakers: circuitbreaker.NewManager(circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         30 * time.Second,
			MaxProbes:        1,
		}),
	}
}

func Default() *PooledClient {
	defaultClientOnce.Do(func() {
		defaultClient = NewPooledClient(DefaultConfig())
	})
	return defaultClient
}

// Do sends the request through the host's circuit breaker. The request
// carries its own context; cancellation propagates through the
// underlying client.
func (p *PooledClient) Do(req *http.Request) (*http.Response, error) {
	return p.breakers.Get(req.URL.Host).Do(func() (*http.Response, error) {
		return p.client.Do(req)
	})
}

func (p *PooledClient) CloseIdleConnections() {
	p.client.CloseIdleConnections()
}
