package policy

import (
	"fmt"
	"time"
)

// File is the YAML policy file structure: one default policy plus per-tool
// overlays keyed by canonical binary path.
type File struct {
	Version string                `yaml:"version"`
	Default RuleConfig            `yaml:"default"`
	Tools   map[string]RuleConfig `yaml:"tools"`
}

// RuleConfig is one policy entry in a YAML file. Every field is optional;
// nil fields inherit from the policy the rule is overlaid on.
type RuleConfig struct {
	Timeout      *Duration           `yaml:"timeout"`
	MemoryLimit  *ByteSize           `yaml:"memory_limit"`
	CPULimit     *uint64             `yaml:"cpu_limit"`
	AllowNetwork *bool               `yaml:"allow_network"`
	AllowedPaths []string            `yaml:"allowed_paths"`
	Restrictions *RestrictionsConfig `yaml:"restrictions"`
}

// RestrictionsConfig mirrors Restrictions with optional fields.
type RestrictionsConfig struct {
	AllowShellExpansion   *bool `yaml:"allow_shell_expansion"`
	AllowFileWrites       *bool `yaml:"allow_file_writes"`
	AllowSubprocesses     *bool `yaml:"allow_subprocesses"`
	AllowEnvModifications *bool `yaml:"allow_env_modifications"`
}

// apply overlays the rule on base and returns the result. Unset fields keep
// the base value.
func (rc RuleConfig) apply(base Policy) Policy {
	out := base.Clone()
	if rc.Timeout != nil {
		out.Timeout = rc.Timeout.Duration
	}
	if rc.MemoryLimit != nil {
		out.MemoryLimit = rc.MemoryLimit.Bytes
	}
	if rc.CPULimit != nil {
		out.CPULimit = *rc.CPULimit
	}
	if rc.AllowNetwork != nil {
		out.AllowNetwork = *rc.AllowNetwork
	}
	if rc.AllowedPaths != nil {
		out.AllowedPaths = append([]string(nil), rc.AllowedPaths...)
	}
	if r := rc.Restrictions; r != nil {
		if r.AllowShellExpansion != nil {
			out.Restrictions.AllowShellExpansion = *r.AllowShellExpansion
		}
		if r.AllowFileWrites != nil {
			out.Restrictions.AllowFileWrites = *r.AllowFileWrites
		}
		if r.AllowSubprocesses != nil {
			out.Restrictions.AllowSubprocesses = *r.AllowSubprocesses
		}
		if r.AllowEnvModifications != nil {
			out.Restrictions.AllowEnvModifications = *r.AllowEnvModifications
		}
	}
	return out
}

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML unmarshals a duration from YAML.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	d.Duration = duration
	return nil
}

// MarshalYAML marshals a duration to YAML.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// ByteSize represents a size in bytes that can be unmarshaled from YAML.
type ByteSize struct {
	Bytes int64
}

// UnmarshalYAML unmarshals a byte size from YAML.
func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int64
		var n int64
		if err := unmarshal(&n); err != nil {
			return err
		}
		b.Bytes = n
		return nil
	}

	bytes, err := parseByteSize(s)
	if err != nil {
		return err
	}

	b.Bytes = bytes
	return nil
}

// parseByteSize parses a byte size string like "10Mi", "1Gi", etc.
func parseByteSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	var numStr string
	var suffix string
	for i, c := range s {
		if c < '0' || c > '9' {
			numStr = s[:i]
			suffix = s[i:]
			break
		}
	}
	if numStr == "" {
		numStr = s
	}

	var num int64
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return 0, err
	}

	multiplier := int64(1)
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1000
	case "Ki", "KiB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1000 * 1000
	case "Mi", "MiB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1000 * 1000 * 1000
	case "Gi", "GiB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown byte size suffix %q", suffix)
	}

	return num * multiplier, nil
}

// MarshalYAML marshals a byte size to YAML.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	if b.Bytes == 0 {
		return "0", nil
	}

	units := []struct {
		suffix string
		size   int64
	}{
		{"Gi", 1024 * 1024 * 1024},
		{"Mi", 1024 * 1024},
		{"Ki", 1024},
	}

	for _, u := range units {
		if b.Bytes >= u.size && b.Bytes%u.size == 0 {
			return fmt.Sprintf("%d%s", b.Bytes/u.size, u.suffix), nil
		}
	}

	return fmt.Sprintf("%d", b.Bytes), nil
}
