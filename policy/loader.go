package policy

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Set is a compiled policy file: the default policy plus per-tool overlays.
// It is immutable after compilation; the loader swaps whole sets on reload.
type Set struct {
	Version string
	Default Policy
	byTool  map[string]Policy
	hash    string
}

// For returns the policy for a tool, falling back to the default when no
// overlay exists for that binary path.
func (s *Set) For(program string) Policy {
	if p, ok := s.byTool[program]; ok {
		return p.Clone()
	}
	return s.Default.Clone()
}

// Tools returns the binary paths that carry overlays.
func (s *Set) Tools() []string {
	out := make([]string, 0, len(s.byTool))
	for tool := range s.byTool {
		out = append(out, tool)
	}
	return out
}

// Hash returns the SHA-256 of the file the set was compiled from.
func (s *Set) Hash() string {
	return s.hash
}

// Loader loads and manages policy sets from a YAML file.
type Loader struct {
	path       string
	set        *Set
	mu         sync.RWMutex
	lastHash   []byte
	lastLoad   time.Time
	onChange   []func(*Set)
	onError    []func(error)
	reloadErrs atomic.Int64
	watchStop  chan struct{}
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithOnChange adds a callback invoked whenever a reload produces a new set.
func WithOnChange(fn func(*Set)) LoaderOption {
	return func(l *Loader) {
		l.onChange = append(l.onChange, fn)
	}
}

// WithOnReloadError adds a callback invoked when a background reload fails.
// The previous set stays live either way; without a callback a broken
// policy file is only visible through ReloadErrors.
func WithOnReloadError(fn func(error)) LoaderOption {
	return func(l *Loader) {
		l.onError = append(l.onError, fn)
	}
}

// NewLoader creates a loader for the given policy file path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, parses and compiles the policy file. If the file content is
// unchanged since the last load, the existing set is returned without
// recompiling.
func (l *Loader) Load(ctx context.Context) (*Set, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	hash := sha256.Sum256(data)
	if l.set != nil && string(hash[:]) == string(l.lastHash) {
		return l.set, nil
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	set, err := compile(&file)
	if err != nil {
		return nil, err
	}
	set.hash = fmt.Sprintf("%x", hash)

	l.set = set
	l.lastHash = hash[:]
	l.lastLoad = time.Now()

	for _, fn := range l.onChange {
		fn(set)
	}

	return set, nil
}

// Get returns the current set without reloading. Nil before the first Load.
func (l *Loader) Get() *Set {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set
}

// ReloadErrors returns how many background reloads have failed since the
// loader was created.
func (l *Loader) ReloadErrors() int64 {
	return l.reloadErrs.Load()
}

// Watch polls the policy file at the given interval until the context is
// canceled or StopWatch is called. Reload errors keep the previous set,
// increment ReloadErrors and reach any WithOnReloadError callbacks.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) {
	l.watchStop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.watchStop:
				return
			case <-ticker.C:
				if _, err := l.Load(ctx); err != nil {
					l.reloadErrs.Add(1)
					for _, fn := range l.onError {
						fn(err)
					}
				}
			}
		}
	}()
}

// StopWatch stops watching for policy changes.
func (l *Loader) StopWatch() {
	if l.watchStop != nil {
		close(l.watchStop)
	}
}

// compile validates the file and resolves each tool overlay against the
// default. Every resolved policy must pass Validate; a file that compiles
// can only hand out usable policies.
func compile(file *File) (*Set, error) {
	if file.Version == "" {
		return nil, fmt.Errorf("policy file: version is required")
	}

	def := file.Default.apply(Default())
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("policy file: default: %w", err)
	}

	set := &Set{
		Version: file.Version,
		Default: def,
		byTool:  make(map[string]Policy, len(file.Tools)),
	}

	for tool, rule := range file.Tools {
		if tool == "" {
			return nil, fmt.Errorf("policy file: tool entry with empty path")
		}
		p := rule.apply(def)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy file: tool %q: %w", tool, err)
		}
		set.byTool[tool] = p
	}

	return set, nil
}
