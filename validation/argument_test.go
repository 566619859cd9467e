package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckArgument_Safe(t *testing.T) {
	safe := []string{
		"",
		"simple",
		"--flag=value",
		"/etc/passwd",
		"file with spaces.json",
		"weird-but-fine_123.~^()[]{}",
		"unicode: héllo wörld",
	}

	for _, arg := range safe {
		if err := CheckArgument(arg); err != nil {
			t.Errorf("CheckArgument(%q) = %v, want nil", arg, err)
		}
	}
}

func TestCheckArgument_ShellMetacharacters(t *testing.T) {
	unsafe := []string{
		"arg;rm -rf /",
		"arg|malicious",
		"arg&background",
		"arg`malicious`",
		"arg$(malicious)",
		"arg$VAR",
		"arg>file",
		"arg<file",
	}

	for _, arg := range unsafe {
		err := CheckArgument(arg)
		if !errors.Is(err, ErrUnsafeArgument) {
			t.Errorf("CheckArgument(%q) = %v, want ErrUnsafeArgument", arg, err)
		}
	}
}

func TestCheckArgument_NullByte(t *testing.T) {
	if err := CheckArgument("arg\x00null"); !errors.Is(err, ErrUnsafeArgument) {
		t.Errorf("Expected ErrUnsafeArgument for null byte, got %v", err)
	}
}

func TestCheckArgument_TooLong(t *testing.T) {
	if err := CheckArgument(strings.Repeat("a", maxArgumentLen)); err != nil {
		t.Errorf("Argument at the limit should pass, got %v", err)
	}
	if err := CheckArgument(strings.Repeat("a", maxArgumentLen+1)); !errors.Is(err, ErrUnsafeArgument) {
		t.Errorf("Expected ErrUnsafeArgument over the limit, got %v", err)
	}
}

// Dangerous-but-syntactically-clean arguments pass: containment is the
// sandbox layer's job, not string inspection's.
func TestCheckArgument_DangerousContentPasses(t *testing.T) {
	if err := CheckArguments([]string{"-rf", "/"}); err != nil {
		t.Errorf("CheckArguments(-rf /) = %v, want nil", err)
	}
}

func TestCheckArgument_Idempotent(t *testing.T) {
	arg := "--output=result.json"
	for i := 0; i < 3; i++ {
		if err := CheckArgument(arg); err != nil {
			t.Fatalf("Pass %d: CheckArgument(%q) = %v", i, arg, err)
		}
	}
}

func TestCheckArguments_ReportsPosition(t *testing.T) {
	err := CheckArguments([]string{"safe", "bad;arg", "also-safe"})
	if !errors.Is(err, ErrUnsafeArgument) {
		t.Fatalf("Expected ErrUnsafeArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), "1") {
		t.Errorf("Error should name the offending position: %v", err)
	}
}

func TestCheckArguments_Empty(t *testing.T) {
	if err := CheckArguments(nil); err != nil {
		t.Errorf("CheckArguments(nil) = %v, want nil", err)
	}
}
