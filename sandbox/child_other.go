//go:build !unix || openbsd

package sandbox

// ChildInit is a no-op where no trampoline exists: Windows, and OpenBSD
// where RLIMIT_AS is absent. The launcher spawns targets directly and
// Detect reports nothing enforceable.
func ChildInit() {}

func detectCapabilities() Capabilities {
	return Capabilities{}
}
