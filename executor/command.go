// Package executor runs commands under policy: it sanitizes inputs at build
// time, launches through the process runner with enforcement derived from
// the attached policy, and classifies every outcome into the error taxonomy.
package executor

import (
	"fmt"
	"strings"

	"github.com/synxlabs/saferun/policy"
	"github.com/synxlabs/saferun/validation"
)

// EnvVar is one sanitized environment override. Overrides are ordered; a
// later write to the same key wins.
type EnvVar struct {
	Key   string
	Value string
}

// Command is a fully sanitized, ready-to-launch invocation. Construct it
// through CommandBuilder; a Command that exists has already passed every
// check, so the launcher applies its fields verbatim.
type Command struct {
	// Program is the canonical absolute path of the verified executable.
	Program string

	// Args are the sanitized arguments, in order.
	Args []string

	// WorkingDir is the canonical working directory, or empty to inherit.
	WorkingDir string

	// Env are the environment overrides applied over the minimal base.
	Env []EnvVar

	// Policy is the command's own copy of the policy it was built under.
	Policy policy.Policy
}

// CommandBuilder accumulates a command step by step. Each step either
// advances exactly one field or latches a descriptive error; after the
// first failure all further steps are no-ops and Build returns the error.
type CommandBuilder struct {
	cmd *Command
	err error
}

// NewCommand starts a builder for the given program under the given policy.
// The policy is validated and copied here; the program path is resolved and
// verified immediately.
func NewCommand(program string, pol policy.Policy) *CommandBuilder {
	b := &CommandBuilder{}

	if err := pol.Validate(); err != nil {
		b.err = err
		return b
	}

	resolved, err := validation.CheckProgram(program)
	if err != nil {
		b.err = err
		return b
	}

	b.cmd = &Command{
		Program: resolved,
		Policy:  pol.Clone(),
	}
	return b
}

// Arg appends one sanitized argument.
func (b *CommandBuilder) Arg(arg string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	if err := validation.CheckArgument(arg); err != nil {
		b.err = fmt.Errorf("argument %d: %w", len(b.cmd.Args), err)
		return b
	}
	b.cmd.Args = append(b.cmd.Args, arg)
	return b
}

// Args appends arguments in order, stopping at the first unsafe one.
func (b *CommandBuilder) Args(args ...string) *CommandBuilder {
	for _, arg := range args {
		b = b.Arg(arg)
	}
	return b
}

// WithWorkingDir sets the working directory. The directory is canonicalized
// and, when the policy carries allowed roots, checked to fall under one.
func (b *CommandBuilder) WithWorkingDir(dir string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	canonical, err := validation.CheckWorkingDir(dir, b.cmd.Policy.AllowedPaths)
	if err != nil {
		b.err = err
		return b
	}
	b.cmd.WorkingDir = canonical
	return b
}

// WithEnv adds an environment override. Fails unless the policy allows
// environment modifications and both key and value pass sanitization.
func (b *CommandBuilder) WithEnv(key, value string) *CommandBuilder {
	if b.err != nil {
		return b
	}
	if err := validation.CheckEnv(key, value, b.cmd.Policy.Restrictions.AllowEnvModifications); err != nil {
		b.err = err
		return b
	}
	b.cmd.Env = append(b.cmd.Env, EnvVar{Key: key, Value: value})
	return b
}

// Err returns the latched error, if any, without finishing the build.
func (b *CommandBuilder) Err() error {
	return b.err
}

// Build returns the finished command or the first error encountered.
func (b *CommandBuilder) Build() (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cmd, nil
}

// Clone returns a deep copy of the command.
func (c *Command) Clone() *Command {
	out := &Command{
		Program:    c.Program,
		WorkingDir: c.WorkingDir,
		Policy:     c.Policy.Clone(),
	}
	if c.Args != nil {
		out.Args = append([]string(nil), c.Args...)
	}
	if c.Env != nil {
		out.Env = append([]EnvVar(nil), c.Env...)
	}
	return out
}

// String renders the invocation for logs. Environment values are omitted.
func (c *Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Program)
	for _, arg := range c.Args {
		sb.WriteByte(' ')
		sb.WriteString(arg)
	}
	if c.WorkingDir != "" {
		fmt.Fprintf(&sb, " (cwd=%s)", c.WorkingDir)
	}
	return sb.String()
}
