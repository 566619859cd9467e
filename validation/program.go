package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// CheckProgram resolves program to a canonical absolute path (symlinks and
// relative segments resolved) and verifies that it names an executable
// regular file. It returns the canonical path; all later stages use that
// path, never the caller's spelling.
func CheckProgram(program string) (string, error) {
	if program == "" {
		return "", fmt.Errorf("%w: empty program path", ErrProgramNotFound)
	}

	abs, err := filepath.Abs(program)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrProgramNotFound, program, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrProgramNotFound, program)
		}
		return "", fmt.Errorf("%w: resolving %q: %v", ErrProgramNotFound, program, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrProgramNotFound, program)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %q is a directory", ErrProgramNotExecutable, resolved)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q is not a regular file", ErrProgramNotExecutable, resolved)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %q has no execute permission", ErrProgramNotExecutable, resolved)
	}

	return resolved, nil
}
