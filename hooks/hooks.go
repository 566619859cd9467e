// Package hooks provides extension points for the command execution
// lifecycle. A Registry collects named, prioritized hooks and plugs into the
// executor as a single executor.Hook.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/synxlabs/saferun/executor"
)

// Hook identifies an extension point participant.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// PreExecuteHook is called before command execution.
type PreExecuteHook interface {
	Hook
	PreExecute(ctx context.Context, cmd *executor.Command) (*executor.Command, error)
}

// PostExecuteHook is called after command execution.
type PostExecuteHook interface {
	Hook
	PostExecute(ctx context.Context, cmd *executor.Command, result *executor.Result, err error) error
}

// Registry manages hook registration and invocation. It implements
// executor.Hook, so a registry attaches to an executor builder directly.
type Registry struct {
	preExecute  []PreExecuteHook
	postExecute []PostExecuteHook
	mu          sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		preExecute:  make([]PreExecuteHook, 0),
		postExecute: make([]PostExecuteHook, 0),
	}
}

// Register adds a hook to the registry. A hook may implement both phases.
func (r *Registry) Register(hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered := false

	if h, ok := hook.(PreExecuteHook); ok {
		r.preExecute = append(r.preExecute, h)
		sort.Slice(r.preExecute, func(i, j int) bool {
			return r.preExecute[i].Priority() < r.preExecute[j].Priority()
		})
		registered = true
	}

	if h, ok := hook.(PostExecuteHook); ok {
		r.postExecute = append(r.postExecute, h)
		sort.Slice(r.postExecute, func(i, j int) bool {
			return r.postExecute[i].Priority() < r.postExecute[j].Priority()
		})
		registered = true
	}

	if !registered {
		return fmt.Errorf("hook %q implements no execution phase", hook.Name())
	}
	return nil
}

// Unregister removes a hook by name from both phases.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pre := make([]PreExecuteHook, 0, len(r.preExecute))
	for _, h := range r.preExecute {
		if h.Name() != name {
			pre = append(pre, h)
		}
	}
	r.preExecute = pre

	post := make([]PostExecuteHook, 0, len(r.postExecute))
	for _, h := range r.postExecute {
		if h.Name() != name {
			post = append(post, h)
		}
	}
	r.postExecute = post
}

// PreExecute implements executor.Hook by running all pre-execute hooks in
// priority order.
func (r *Registry) PreExecute(ctx context.Context, cmd *executor.Command) (*executor.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := cmd
	for _, hook := range r.preExecute {
		modified, err := hook.PreExecute(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
		current = modified
	}
	return current, nil
}

// PostExecute implements executor.Hook by running all post-execute hooks in
// priority order.
func (r *Registry) PostExecute(ctx context.Context, cmd *executor.Command, result *executor.Result, execErr error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.postExecute {
		if err := hook.PostExecute(ctx, cmd, result, execErr); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

// LoggingHook is a built-in hook that logs execution attempts.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

func (h *LoggingHook) PreExecute(ctx context.Context, cmd *executor.Command) (*executor.Command, error) {
	h.logger("executing: %s %v", cmd.Program, cmd.Args)
	return cmd, nil
}

func (h *LoggingHook) PostExecute(ctx context.Context, cmd *executor.Command, result *executor.Result, err error) error {
	if err != nil {
		h.logger("execution failed: %s - %v", cmd.Program, err)
	} else {
		h.logger("execution completed: %s - status=%s duration=%v", cmd.Program, result.Status, result.Duration)
	}
	return nil
}
