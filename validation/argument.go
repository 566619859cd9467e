package validation

import (
	"fmt"
	"strings"
)

// unsafeBytes are the refused shell metacharacters. The deny list is defense
// in depth: arguments always reach the kernel as an argv vector, never a
// shell string, so a byte that slips a future edit of this list still cannot
// expand. Note that an argument like `rm -rf /` contains none of these bytes
// and passes; keeping such a tool from acting is the sandbox layer's job,
// not string inspection's.
const unsafeBytes = ";&|`$<>"

// maxArgumentLen caps a single argument.
const maxArgumentLen = 4096

// CheckArgument verifies a single argument against the deny list, the NUL
// ban and the length cap.
func CheckArgument(arg string) error {
	if strings.IndexByte(arg, 0) >= 0 {
		return fmt.Errorf("%w: argument contains NUL byte", ErrUnsafeArgument)
	}
	if len(arg) > maxArgumentLen {
		return fmt.Errorf("%w: argument length %d exceeds %d", ErrUnsafeArgument, len(arg), maxArgumentLen)
	}
	if i := strings.IndexAny(arg, unsafeBytes); i >= 0 {
		return fmt.Errorf("%w: argument contains %q", ErrUnsafeArgument, arg[i])
	}
	return nil
}

// CheckArguments verifies each argument in order and reports the position of
// the first failure.
func CheckArguments(args []string) error {
	for i, arg := range args {
		if err := CheckArgument(arg); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}
