package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CheckWorkingDir canonicalizes dir (absolute, symlinks resolved) and
// verifies it is an existing directory. When allowedRoots is non-empty the
// canonical path must additionally be one of the roots or a descendant of
// one; the comparison uses the canonical forms of both sides, so a symlink
// pointing outside an allowed root does not pass.
func CheckWorkingDir(dir string, allowedRoots []string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: empty working directory", ErrPathNotAllowed)
	}

	canonical, err := canonicalDir(dir)
	if err != nil {
		return "", err
	}

	if len(allowedRoots) == 0 {
		return canonical, nil
	}

	for _, root := range allowedRoots {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			// A configured root that does not exist allows nothing.
			continue
		}
		if isWithin(canonical, resolved) {
			return canonical, nil
		}
	}

	return "", fmt.Errorf("%w: %q is outside the allowed roots", ErrPathNotAllowed, canonical)
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrPathNotAllowed, dir, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q does not exist", ErrPathNotAllowed, dir)
		}
		return "", fmt.Errorf("%w: resolving %q: %v", ErrPathNotAllowed, dir, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %q does not exist", ErrPathNotAllowed, dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %q is not a directory", ErrPathNotAllowed, resolved)
	}

	return resolved, nil
}

// isWithin reports whether path equals root or sits below it. Both inputs
// must already be canonical.
func isWithin(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
