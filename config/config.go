// Package config provides aggregate configuration for saferun.
package config

import (
	"github.com/synxlabs/saferun/observability"
	"github.com/synxlabs/saferun/pool"
	"github.com/synxlabs/saferun/resilience"
)

// Config is the main configuration for saferun.
type Config struct {
	Executor       ExecutorConfig
	Pool           pool.Config
	RateLimiter    resilience.RateLimiterConfig
	CircuitBreaker resilience.CircuitBreakerConfig
	Telemetry      observability.TelemetryConfig
	Audit          observability.AuditConfig

	// PolicyPath is the YAML policy file loaded at startup, empty to run
	// with the built-in default policy only.
	PolicyPath string
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	// StubPath points the sandbox trampoline at a helper binary such as
	// saferun-init. Empty means the host re-execs itself, and must call
	// ChildInit at the top of main.
	StubPath string

	// AppArmorProfile names a profile children transition into, when
	// configured.
	AppArmorProfile string

	EnableRateLimiter    bool
	EnableCircuitBreaker bool
	EnableMetrics        bool
	EnableTracing        bool
	EnableAudit          bool
	EnablePool           bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Executor: ExecutorConfig{
			EnableRateLimiter:    true,
			EnableCircuitBreaker: true,
			EnableMetrics:        true,
			EnableTracing:        true,
			EnableAudit:          true,
			EnablePool:           true,
		},
		Pool:           pool.DefaultConfig(),
		RateLimiter:    resilience.DefaultRateLimiterConfig(),
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
		Telemetry:      observability.DefaultTelemetryConfig(),
		Audit:          observability.DefaultAuditConfig(),
	}
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimiter.DefaultLimit = 1000
	cfg.RateLimiter.DefaultBurst = 2000
	cfg.CircuitBreaker.FailureThreshold = 10
	cfg.Audit.LogLevel = observability.AuditLogAll
	cfg.Audit.IncludeOutput = true
	cfg.Audit.FilePath = "saferun-audit.log"
	return cfg
}

// ProductionConfig returns configuration suitable for production.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Pool.Workers = 4
	cfg.RateLimiter.DefaultLimit = 100
	cfg.RateLimiter.DefaultBurst = 150
	cfg.CircuitBreaker.FailureThreshold = 5
	cfg.Audit.LogLevel = observability.AuditLogAll
	cfg.Audit.IncludeOutput = false
	return cfg
}

// Validate normalizes out-of-range values.
func (c *Config) Validate() error {
	if c.Pool.Workers <= 0 {
		c.Pool.Workers = 1
	}
	if c.Pool.QueueSize <= 0 {
		c.Pool.QueueSize = c.Pool.Workers * 8
	}
	if c.RateLimiter.DefaultBurst <= 0 {
		c.RateLimiter.DefaultBurst = 1
	}
	return nil
}
