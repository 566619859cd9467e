package policy

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	p := Default()

	if p.Timeout != 30*time.Second {
		t.Errorf("Default timeout = %v, want 30s", p.Timeout)
	}
	if p.MemoryLimit != 512*1024*1024 {
		t.Errorf("Default memory limit = %d, want 512 MiB", p.MemoryLimit)
	}
	if p.CPULimit != 50 {
		t.Errorf("Default CPU limit = %d, want 50", p.CPULimit)
	}
	if p.AllowNetwork {
		t.Error("Default policy should deny network")
	}
	if len(p.AllowedPaths) != 0 {
		t.Errorf("Default policy should have no allowed paths, got %v", p.AllowedPaths)
	}

	r := p.Restrictions
	if r.AllowShellExpansion || r.AllowFileWrites || r.AllowSubprocesses || r.AllowEnvModifications {
		t.Errorf("Default restrictions should all be closed, got %+v", r)
	}

	if err := p.Validate(); err != nil {
		t.Errorf("Default policy must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{"valid default", func(p *Policy) {}, false},
		{"zero timeout", func(p *Policy) { p.Timeout = 0 }, true},
		{"negative timeout", func(p *Policy) { p.Timeout = -time.Second }, true},
		{"zero memory", func(p *Policy) { p.MemoryLimit = 0 }, true},
		{"negative memory", func(p *Policy) { p.MemoryLimit = -1 }, true},
		{"zero cpu", func(p *Policy) { p.CPULimit = 0 }, true},
		{"relative allowed path", func(p *Policy) { p.AllowedPaths = []string{"tmp/work"} }, true},
		{"absolute allowed path", func(p *Policy) { p.AllowedPaths = []string{"/tmp/work"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestClone_Isolated(t *testing.T) {
	p := Default()
	p.AllowedPaths = []string{"/tmp/a"}

	c := p.Clone()
	c.AllowedPaths[0] = "/tmp/changed"
	c.Timeout = time.Minute

	if p.AllowedPaths[0] != "/tmp/a" {
		t.Error("Clone shares AllowedPaths backing array")
	}
	if p.Timeout != 30*time.Second {
		t.Error("Clone shares scalar state")
	}
}
