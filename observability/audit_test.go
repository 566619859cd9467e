package observability

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/synxlabs/saferun/executor"
)

func tempAuditConfig(t *testing.T) AuditConfig {
	t.Helper()
	cfg := DefaultAuditConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "audit", "audit.log")
	return cfg
}

func readEvents(t *testing.T, path string) []AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("Malformed audit line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestFileAuditLogger_WritesJSONLines(t *testing.T) {
	cfg := tempAuditConfig(t)
	logger, err := NewFileAuditLogger(cfg)
	if err != nil {
		t.Fatalf("NewFileAuditLogger failed: %v", err)
	}
	defer logger.Close()

	event := &AuditEvent{
		Timestamp: time.Now(),
		ID:        "cmd-1",
		Type:      AuditEventExecution,
		Program:   "/usr/bin/jq",
		Args:      []string{".", "data.json"},
		Status:    "success",
		Duration:  42 * time.Millisecond,
	}
	if err := logger.Log(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, cfg.FilePath)
	if len(events) != 1 {
		t.Fatalf("Logged %d events, want 1", len(events))
	}
	got := events[0]
	if got.Program != "/usr/bin/jq" || got.Status != "success" || got.ID != "cmd-1" {
		t.Errorf("Event = %+v", got)
	}
}

func TestFileAuditLogger_FailureLevelSkipsSuccess(t *testing.T) {
	cfg := tempAuditConfig(t)
	cfg.LogLevel = AuditLogFailures
	logger, _ := NewFileAuditLogger(cfg)
	defer logger.Close()

	logger.Log(context.Background(), &AuditEvent{Status: "success"})
	logger.Log(context.Background(), &AuditEvent{Status: "timeout"})

	events := readEvents(t, cfg.FilePath)
	if len(events) != 1 || events[0].Status != "timeout" {
		t.Errorf("Events = %+v, want only the failure", events)
	}
}

func TestFileAuditLogger_DenialLevel(t *testing.T) {
	cfg := tempAuditConfig(t)
	cfg.LogLevel = AuditLogDenials
	logger, _ := NewFileAuditLogger(cfg)
	defer logger.Close()

	logger.Log(context.Background(), &AuditEvent{Type: AuditEventExecution, Status: "error"})
	logger.Log(context.Background(), &AuditEvent{Type: AuditEventDenied, Status: "rate_limited"})

	events := readEvents(t, cfg.FilePath)
	if len(events) != 1 || events[0].Type != AuditEventDenied {
		t.Errorf("Events = %+v, want only the denial", events)
	}
}

func TestFileAuditLogger_OutputHandling(t *testing.T) {
	cfg := tempAuditConfig(t)
	cfg.IncludeOutput = true
	cfg.MaxOutputSize = 8
	logger, _ := NewFileAuditLogger(cfg)
	defer logger.Close()

	logger.Log(context.Background(), &AuditEvent{Status: "success", Output: "0123456789abcdef"})

	events := readEvents(t, cfg.FilePath)
	if !strings.HasPrefix(events[0].Output, "01234567") || !strings.HasSuffix(events[0].Output, "(truncated)") {
		t.Errorf("Output = %q, want truncation marker", events[0].Output)
	}

	// With output excluded, the field is dropped entirely.
	cfg2 := tempAuditConfig(t)
	cfg2.IncludeOutput = false
	logger2, _ := NewFileAuditLogger(cfg2)
	defer logger2.Close()

	logger2.Log(context.Background(), &AuditEvent{Status: "success", Output: "secret"})
	if out := readEvents(t, cfg2.FilePath)[0].Output; out != "" {
		t.Errorf("Output = %q, want empty", out)
	}
}

func TestCreateAuditEvent_Classification(t *testing.T) {
	cmd := &executor.Command{Program: "/usr/bin/jq", Args: []string{"."}}

	ok := CreateAuditEvent(cmd, &executor.Result{CommandID: "a", Status: executor.StatusSuccess}, nil)
	if ok.Type != AuditEventExecution {
		t.Errorf("Success type = %v", ok.Type)
	}

	denied := CreateAuditEvent(cmd,
		&executor.Result{CommandID: "b", Status: executor.StatusRateLimited},
		executor.NewRateLimitError(cmd.Program))
	if denied.Type != AuditEventDenied {
		t.Errorf("Denied type = %v", denied.Type)
	}
	if denied.ErrorCode != string(executor.ErrCodeRateLimited) {
		t.Errorf("ErrorCode = %q", denied.ErrorCode)
	}

	failed := CreateAuditEvent(cmd, &executor.Result{CommandID: "c", Status: executor.StatusError},
		executor.NewLaunchError(cmd.Program, errors.New("spawn failed")))
	if failed.Type != AuditEventError {
		t.Errorf("Error type = %v", failed.Type)
	}
	if failed.Error == "" {
		t.Error("Error text should be recorded")
	}
}

func TestAuditHook(t *testing.T) {
	cfg := tempAuditConfig(t)
	logger, _ := NewFileAuditLogger(cfg)
	defer logger.Close()

	hook := NewAuditHook(logger)
	cmd := &executor.Command{Program: "/usr/bin/jq"}
	result := &executor.Result{CommandID: "h-1", Status: executor.StatusSuccess}

	if err := hook.PostExecute(context.Background(), cmd, result, nil); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, cfg.FilePath)
	if len(events) != 1 || events[0].ID != "h-1" {
		t.Errorf("Events = %+v", events)
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.Record(&executor.Result{Status: executor.StatusSuccess, Duration: time.Millisecond}, nil)
	m.Record(&executor.Result{Status: executor.StatusTimeout}, executor.ErrTimeout)
	m.Record(&executor.Result{Status: executor.StatusRateLimited}, executor.ErrRateLimited)
	m.Record(&executor.Result{Status: executor.StatusError, ExitCode: 1}, nil)
	m.Record(nil, errors.New("pre-launch failure"))

	snap := m.Snapshot()
	if snap.Executions != 5 {
		t.Errorf("Executions = %d, want 5", snap.Executions)
	}
	if snap.Successes != 1 {
		t.Errorf("Successes = %d, want 1", snap.Successes)
	}
	if snap.Timeouts != 1 {
		t.Errorf("Timeouts = %d, want 1", snap.Timeouts)
	}
	if snap.Denials != 1 {
		t.Errorf("Denials = %d, want 1", snap.Denials)
	}
	if snap.Failures != 2 {
		t.Errorf("Failures = %d, want 2", snap.Failures)
	}
}

func TestMetricsHook(t *testing.T) {
	m := NewMetrics()
	hook := NewMetricsHook(m)

	cmd := &executor.Command{Program: "/usr/bin/jq"}
	hook.PostExecute(context.Background(), cmd, &executor.Result{Status: executor.StatusSuccess}, nil)

	if m.Snapshot().Successes != 1 {
		t.Error("MetricsHook did not record the execution")
	}
}

// Hooks plug into the executor directly.
var (
	_ executor.Hook = (*AuditHook)(nil)
	_ executor.Hook = (*MetricsHook)(nil)
)
