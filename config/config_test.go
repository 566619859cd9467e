package config

import (
	"testing"

	"github.com/synxlabs/saferun/observability"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	e := cfg.Executor
	if !e.EnableRateLimiter || !e.EnableCircuitBreaker || !e.EnableMetrics || !e.EnableAudit || !e.EnablePool {
		t.Errorf("Default config should enable all components, got %+v", e)
	}
	if cfg.Pool.Workers <= 0 {
		t.Error("Default pool must have workers")
	}
	if cfg.RateLimiter.DefaultBurst <= 0 {
		t.Error("Default rate limiter must have burst capacity")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestDevelopmentConfig(t *testing.T) {
	cfg := DevelopmentConfig()

	if cfg.RateLimiter.DefaultLimit <= DefaultConfig().RateLimiter.DefaultLimit {
		t.Error("Development config should relax the rate limit")
	}
	if !cfg.Audit.IncludeOutput {
		t.Error("Development config should include output in audit records")
	}
	if cfg.Audit.FilePath == DefaultConfig().Audit.FilePath {
		t.Error("Development config should log next to the process, not /var/log")
	}
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()

	if cfg.Audit.IncludeOutput {
		t.Error("Production config must not write tool output to the audit log")
	}
	if cfg.Audit.LogLevel != observability.AuditLogAll {
		t.Errorf("LogLevel = %v, want all", cfg.Audit.LogLevel)
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.Workers = -1
	cfg.Pool.QueueSize = 0
	cfg.RateLimiter.DefaultBurst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Pool.Workers != 1 {
		t.Errorf("Workers = %d, want normalized to 1", cfg.Pool.Workers)
	}
	if cfg.Pool.QueueSize != 8 {
		t.Errorf("QueueSize = %d, want workers*8", cfg.Pool.QueueSize)
	}
	if cfg.RateLimiter.DefaultBurst != 1 {
		t.Errorf("DefaultBurst = %d, want 1", cfg.RateLimiter.DefaultBurst)
	}
}
