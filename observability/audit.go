package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/synxlabs/saferun/executor"
)

// AuditLogger records one immutable event per execution attempt.
type AuditLogger interface {
	// Log logs an audit event.
	Log(ctx context.Context, event *AuditEvent) error

	// Close closes the audit logger.
	Close() error
}

// AuditEvent is one JSON-lines audit record.
type AuditEvent struct {
	Timestamp  time.Time      `json:"timestamp"`
	ID         string         `json:"id"`
	Type       AuditEventType `json:"type"`
	Program    string         `json:"program"`
	Args       []string       `json:"args"`
	WorkingDir string         `json:"working_dir,omitempty"`
	Status     string         `json:"status"`
	ExitCode   int            `json:"exit_code"`
	Signal     string         `json:"signal,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Output     string         `json:"output,omitempty"`
}

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// AuditEventExecution is a completed execution attempt.
	AuditEventExecution AuditEventType = "execution"

	// AuditEventDenied is an admission or sanitizer denial.
	AuditEventDenied AuditEventType = "denied"

	// AuditEventError is an execution that failed before or during launch.
	AuditEventError AuditEventType = "error"
)

// AuditLogLevel determines what events to log.
type AuditLogLevel string

const (
	// AuditLogAll logs all events.
	AuditLogAll AuditLogLevel = "all"

	// AuditLogFailures logs only failures.
	AuditLogFailures AuditLogLevel = "failures"

	// AuditLogDenials logs only denial events.
	AuditLogDenials AuditLogLevel = "denials"
)

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled       bool
	LogLevel      AuditLogLevel
	FilePath      string
	IncludeOutput bool
	MaxOutputSize int
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		LogLevel:      AuditLogAll,
		FilePath:      "/var/log/saferun/audit.log",
		IncludeOutput: false,
		MaxOutputSize: 1024,
	}
}

// fileAuditLogger appends JSON lines to a file.
type fileAuditLogger struct {
	config AuditConfig
	file   *os.File
	mu     sync.Mutex
}

// NewFileAuditLogger creates a file-based audit logger, creating parent
// directories as needed.
func NewFileAuditLogger(config AuditConfig) (AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	return &fileAuditLogger{config: config, file: f}, nil
}

// Log implements AuditLogger.Log.
func (l *fileAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if !l.config.Enabled || !l.shouldLog(event) {
		return nil
	}

	if !l.config.IncludeOutput {
		event.Output = ""
	} else if len(event.Output) > l.config.MaxOutputSize {
		event.Output = event.Output[:l.config.MaxOutputSize] + "...(truncated)"
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

// Close implements AuditLogger.Close.
func (l *fileAuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *fileAuditLogger) shouldLog(event *AuditEvent) bool {
	switch l.config.LogLevel {
	case AuditLogAll:
		return true
	case AuditLogFailures:
		return event.Status != executor.StatusSuccess.String()
	case AuditLogDenials:
		return event.Type == AuditEventDenied
	default:
		return true
	}
}

// CreateAuditEvent builds an event from an execution attempt.
func CreateAuditEvent(cmd *executor.Command, result *executor.Result, execErr error) *AuditEvent {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		Type:       AuditEventExecution,
		Program:    cmd.Program,
		Args:       cmd.Args,
		WorkingDir: cmd.WorkingDir,
	}

	if result != nil {
		event.ID = result.CommandID
		event.Status = result.Status.String()
		event.ExitCode = result.ExitCode
		event.Signal = result.Signal
		event.Duration = result.Duration
		event.Output = result.StdoutString()

		switch result.Status {
		case executor.StatusRateLimited, executor.StatusCircuitOpen:
			event.Type = AuditEventDenied
		}
	}

	if execErr != nil {
		event.Error = execErr.Error()
		event.ErrorCode = string(executor.GetErrorCode(execErr))
		if event.Type == AuditEventExecution {
			event.Type = AuditEventError
		}
	}

	return event
}

// AuditHook delivers one audit event per execution attempt from the
// executor's post-execute hook point.
type AuditHook struct {
	logger AuditLogger
}

// NewAuditHook wraps an audit logger as an execution hook.
func NewAuditHook(logger AuditLogger) *AuditHook {
	return &AuditHook{logger: logger}
}

// PreExecute implements executor.Hook.
func (h *AuditHook) PreExecute(ctx context.Context, cmd *executor.Command) (*executor.Command, error) {
	return cmd, nil
}

// PostExecute implements executor.Hook.
func (h *AuditHook) PostExecute(ctx context.Context, cmd *executor.Command, result *executor.Result, err error) error {
	return h.logger.Log(ctx, CreateAuditEvent(cmd, result, err))
}

// NoopAuditLogger returns a no-op audit logger.
func NoopAuditLogger() AuditLogger {
	return &noopAuditLogger{}
}

type noopAuditLogger struct{}

func (l *noopAuditLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (l *noopAuditLogger) Close() error                                     { return nil }
