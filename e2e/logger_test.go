//go:build e2e
// +build e2e

package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestLogger mirrors test output into a per-scenario log file so a
// failed headless run leaves a full interaction trace behind even when
// the test binary's output is truncated by CI.
type TestLogger struct {
	t *testing.T

	mu   sync.Mutex
	file *os.File
}

// NewTestLogger opens a timestamped log file for scenario under
// E2E_LOG_DIR (default /tmp/onwatch-e2e-logs). File logging degrades to
// test output only if the directory cannot be created.
func NewTestLogger(t *testing.T, scenario string) *TestLogger {
	t.Helper()

	dir := os.Getenv("E2E_LOG_DIR")
	if dir == "" {
		dir = "/tmp/onwatch-e2e-logs"
	}

	l := &TestLogger{t: t}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Logf("test logger: %v (file logging disabled)", err)
		return l
	}
	name := fmt.Sprintf("%s-%s.log", scenario, time.Now().Format("20060102-150405"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Logf("test logger: %v (file logging disabled)", err)
		return l
	}
	l.file = f
	t.Cleanup(l.Close)
	return l
}

// Log writes to the test output and the scenario log file.
func (l *TestLogger) Log(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.t.Log(msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprintf(l.file, "%s %s\n", time.Now().Format(time.RFC3339), msg)
	}
}

// Close flushes and closes the scenario log file.
func (l *TestLogger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
