// Package envutil builds child environments. The parent's environment is
// never inherited; children start from a minimal safe base plus the
// command's sanitized overrides.
package envutil

import "strings"

// Minimal returns the base environment every child starts from.
func Minimal() []string {
	return []string{
		"PATH=/usr/bin:/bin",
		"HOME=/tmp",
		"USER=nobody",
		"LANG=C.UTF-8",
		"LC_ALL=C.UTF-8",
	}
}

// Merge overlays KEY=VALUE overrides on base, preserving base order.
// An override for an existing key replaces it in place; new keys append in
// override order, so the last write for a key wins.
func Merge(base, overrides []string) []string {
	out := make([]string, len(base), len(base)+len(overrides))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, kv := range out {
		key, _, _ := strings.Cut(kv, "=")
		index[key] = i
	}

	for _, kv := range overrides {
		key, _, _ := strings.Cut(kv, "=")
		if i, ok := index[key]; ok {
			out[i] = kv
			continue
		}
		index[key] = len(out)
		out = append(out, kv)
	}

	return out
}
