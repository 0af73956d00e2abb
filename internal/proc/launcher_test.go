package proc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndStop(t *testing.T) {
	m, err := Start(Spec{Name: "sleeper", Path: "/bin/sleep", Args: []string{"60"}})
	require.NoError(t, err)

	assert.Equal(t, StateRunning, m.State())
	assert.Greater(t, m.PID(), 0)
	assert.True(t, m.Alive())

	start := time.Now()
	require.NoError(t, m.Stop(2*time.Second))
	assert.Less(t, time.Since(start), 2*time.Second, "sleep should die on SIGTERM without escalation")

	assert.Equal(t, StateTerminated, m.State())
	assert.False(t, m.Alive())
}

func TestStopIsIdempotent(t *testing.T) {
	m, err := Start(Spec{Name: "sleeper", Path: "/bin/sleep", Args: []string{"60"}})
	require.NoError(t, err)

	require.NoError(t, m.Stop(2*time.Second))
	require.NoError(t, m.Stop(2*time.Second))
	require.NoError(t, m.Stop(2*time.Second))
}

func TestStopAfterNaturalExit(t *testing.T) {
	m, err := Start(Spec{Name: "noop", Path: "/bin/true"})
	require.NoError(t, err)

	require.NoError(t, m.Wait())
	assert.Equal(t, StateTerminated, m.State())

	// Stopping a process that already exited must be a no-op.
	require.NoError(t, m.Stop(time.Second))
}

func TestStopEscalatesToKill(t *testing.T) {
	// A shell trapping SIGTERM only dies from the SIGKILL escalation.
	m, err := Start(Spec{
		Name: "stubborn",
		Path: "/bin/sh",
		Args: []string{"-c", `trap "" TERM; sleep 60`},
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, m.Stop(500*time.Millisecond))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond, "grace period must elapse before the kill")
	assert.Equal(t, StateTerminated, m.State())
	assert.False(t, m.Alive())
}

func TestCapturedOutput(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "stdout.log")
	errPath := filepath.Join(dir, "stderr.log")

	m, err := Start(Spec{
		Name:       "echoer",
		Path:       "/bin/sh",
		Args:       []string{"-c", `echo to-stdout; echo to-stderr 1>&2`},
		StdoutPath: outPath,
		StderrPath: errPath,
	})
	require.NoError(t, err)
	require.NoError(t, m.Wait())
	require.NoError(t, m.Stop(time.Second))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "to-stdout\n", string(out))

	errOut, err := os.ReadFile(errPath)
	require.NoError(t, err)
	assert.Equal(t, "to-stderr\n", string(errOut))
}

func TestStartMissingExecutable(t *testing.T) {
	_, err := Start(Spec{Name: "ghost", Path: "/nonexistent/binary"})
	require.Error(t, err)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "ghost", launchErr.Name)
}

func TestBuildErrorMessage(t *testing.T) {
	err := &BuildError{
		Pkg:    "./cmd/broken",
		Stderr: "main.go:10: undefined: frobnicate",
		Err:    os.ErrInvalid,
	}
	msg := err.Error()
	assert.Contains(t, msg, "./cmd/broken")
	assert.Contains(t, msg, "undefined: frobnicate")
}
