//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/landlock-lsm/go-landlock/landlock"
	landlocksys "github.com/landlock-lsm/go-landlock/landlock/syscall"
)

// applyPathRules installs the read-only rule set: read access everywhere,
// write access only under the spec's writable roots plus /dev/null (which
// many tools open for writing as a sink). Fail closed: a kernel without
// Landlock is an installation error here, not a silent pass.
func applyPathRules(s Spec) error {
	cfg, err := landlockConfig()
	if err != nil {
		return err
	}

	rules := []landlock.Rule{landlock.RODirs("/")}

	if info, err := os.Stat("/dev/null"); err == nil && !info.IsDir() {
		rules = append(rules, landlock.RWFiles("/dev/null"))
	}

	for _, path := range s.WritablePaths {
		target := nearestExistingPath(path)
		info, err := os.Stat(target)
		if err != nil {
			continue
		}
		if info.IsDir() {
			rules = append(rules, landlock.RWDirs(target))
		} else {
			rules = append(rules, landlock.RWFiles(target))
		}
	}

	return cfg.RestrictPaths(rules...)
}

// landlockConfig picks the strongest config the running kernel supports.
func landlockConfig() (landlock.Config, error) {
	abi, err := landlocksys.LandlockGetABIVersion()
	if err != nil {
		return landlock.Config{}, fmt.Errorf("landlock unavailable on this kernel (%w)", err)
	}

	switch {
	case abi >= 7:
		return landlock.V7, nil
	case abi == 6:
		return landlock.V6, nil
	case abi == 5:
		return landlock.V5, nil
	case abi == 4:
		return landlock.V4, nil
	case abi == 3:
		return landlock.V3, nil
	case abi == 2:
		return landlock.V2, nil
	case abi == 1:
		return landlock.V1, nil
	default:
		return landlock.Config{}, fmt.Errorf("landlock unavailable on this kernel (unsupported ABI v%d)", abi)
	}
}

func nearestExistingPath(path string) string {
	cleaned := filepath.Clean(path)
	for {
		if cleaned == "." || cleaned == "" {
			return "/"
		}
		if _, err := os.Stat(cleaned); err == nil {
			return cleaned
		}
		if cleaned == "/" {
			return "/"
		}
		cleaned = filepath.Dir(cleaned)
	}
}
