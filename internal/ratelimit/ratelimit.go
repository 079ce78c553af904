// Package ratelimit gates the RPC and REST surfaces with a per-service
// token bucket, one golang.org/x/time/rate.Limiter per named service so a
// burst against Discovery can't starve Cluster or Semantics calls on the
// same node.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wessley-ai/querent-node/pkg/resilience"
)

// Config sets the token bucket for one service.
type Config struct {
	// RequestsPerSecond is the steady-state refill rate.
	RequestsPerSecond float64
	// Burst is the bucket capacity.
	Burst int
}

// DefaultConfig applies to any service not explicitly configured.
var DefaultConfig = Config{RequestsPerSecond: 50, Burst: 100}

// Registry holds one limiter per service name, created lazily from its
// configured (or default) Config on first use.
type Registry struct {
	mu       sync.Mutex
	configs  map[string]Config
	limiters map[string]*rate.Limiter
}

// NewRegistry builds a Registry seeded with per-service configs; services
// not present in configs fall back to DefaultConfig.
func NewRegistry(configs map[string]Config) *Registry {
	return &Registry{
		configs:  configs,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *Registry) limiterFor(service string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[service]; ok {
		return l
	}
	cfg, ok := r.configs[service]
	if !ok {
		cfg = DefaultConfig
	}
	l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	r.limiters[service] = l
	return l
}

// Allow reports whether a call to service may proceed right now, consuming
// a token if so. Used by non-blocking call sites (the gRPC interceptor).
func (r *Registry) Allow(service string) bool {
	return r.limiterFor(service).Allow()
}

// Wait blocks until a token for service is available or ctx is cancelled.
func (r *Registry) Wait(ctx context.Context, service string) error {
	return r.limiterFor(service).Wait(ctx)
}

// RESTLimiter rate-limits the REST surface as a whole using the adapted
// pkg/resilience.Limiter, a coarser gate than the per-service RPC Registry
// since REST exposes only introspection endpoints.
type RESTLimiter struct {
	l *resilience.Limiter
}

// NewRESTLimiter builds a RESTLimiter from cfg.
func NewRESTLimiter(cfg Config) *RESTLimiter {
	return &RESTLimiter{l: resilience.NewLimiter(resilience.LimiterOpts{
		Rate:  cfg.RequestsPerSecond,
		Burst: cfg.Burst,
	})}
}

// Allow reports whether a REST request may proceed right now.
func (r *RESTLimiter) Allow() bool { return r.l.Allow() }
