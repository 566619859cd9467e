// Package resilience provides admission gating for tool executions: a
// per-tool rate limiter and a per-tool circuit breaker. Both gate whether an
// attempt starts; neither retries anything, every execution error stays
// terminal.
package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter controls execution rate.
type RateLimiter interface {
	// Allow checks if execution is allowed for the given tool.
	Allow(program string) bool

	// Wait blocks until execution is allowed or the context is canceled.
	Wait(ctx context.Context, program string) error

	// SetLimit updates the rate limit for a tool.
	SetLimit(program string, limit rate.Limit, burst int)
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// DefaultLimit is the default executions per second.
	DefaultLimit float64

	// DefaultBurst is the default burst size.
	DefaultBurst int

	// PerTool enables per-tool rate limiting.
	PerTool bool

	// ToolLimits contains per-tool rate limits keyed by binary path.
	ToolLimits map[string]ToolLimit
}

// ToolLimit defines the rate limit for a specific tool.
type ToolLimit struct {
	Limit float64
	Burst int
}

// DefaultRateLimiterConfig returns default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultLimit: 100,
		DefaultBurst: 150,
		PerTool:      true,
		ToolLimits:   make(map[string]ToolLimit),
	}
}

// rateLimiter implements RateLimiter.
type rateLimiter struct {
	config        RateLimiterConfig
	globalLimiter *rate.Limiter
	toolLimiters  map[string]*rate.Limiter
	mu            sync.RWMutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) RateLimiter {
	rl := &rateLimiter{
		config:        config,
		globalLimiter: rate.NewLimiter(rate.Limit(config.DefaultLimit), config.DefaultBurst),
		toolLimiters:  make(map[string]*rate.Limiter),
	}

	for tool, limit := range config.ToolLimits {
		rl.toolLimiters[tool] = rate.NewLimiter(rate.Limit(limit.Limit), limit.Burst)
	}

	return rl
}

// Allow implements RateLimiter.Allow.
func (rl *rateLimiter) Allow(program string) bool {
	if !rl.config.PerTool {
		return rl.globalLimiter.Allow()
	}
	return rl.getLimiter(program).Allow()
}

// Wait implements RateLimiter.Wait.
func (rl *rateLimiter) Wait(ctx context.Context, program string) error {
	if !rl.config.PerTool {
		return rl.globalLimiter.Wait(ctx)
	}
	return rl.getLimiter(program).Wait(ctx)
}

// SetLimit implements RateLimiter.SetLimit.
func (rl *rateLimiter) SetLimit(program string, limit rate.Limit, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.toolLimiters[program]; ok {
		limiter.SetLimit(limit)
		limiter.SetBurst(burst)
	} else {
		rl.toolLimiters[program] = rate.NewLimiter(limit, burst)
	}
}

func (rl *rateLimiter) getLimiter(program string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.toolLimiters[program]
	rl.mu.RUnlock()

	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if existing, ok := rl.toolLimiters[program]; ok {
		return existing
	}

	newLimiter := rate.NewLimiter(rate.Limit(rl.config.DefaultLimit), rl.config.DefaultBurst)
	rl.toolLimiters[program] = newLimiter
	return newLimiter
}
