package validation

import (
	"fmt"
	"strings"
)

// CheckEnv gates an environment override on the policy switch and then
// verifies the key and value. The gate comes first: with modifications
// denied, even a harmless pair is refused.
func CheckEnv(key, value string, allowed bool) error {
	if !allowed {
		return fmt.Errorf("%w: cannot set %q", ErrEnvModificationDenied, key)
	}
	if err := CheckEnvKey(key); err != nil {
		return err
	}
	if err := CheckArgument(value); err != nil {
		return fmt.Errorf("environment value for %q: %w", key, err)
	}
	return nil
}

// CheckEnvKey verifies an environment variable name: non-empty, printable
// ASCII, and free of '=' and NUL.
func CheckEnvKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty environment key", ErrUnsafeArgument)
	}
	if strings.ContainsRune(key, '=') {
		return fmt.Errorf("%w: environment key %q contains '='", ErrUnsafeArgument, key)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c <= 0x20 || c >= 0x7f {
			return fmt.Errorf("%w: environment key %q contains byte 0x%02x", ErrUnsafeArgument, key, c)
		}
	}
	return nil
}
