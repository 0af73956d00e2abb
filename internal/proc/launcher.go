// Package proc builds, launches, and reaps the server processes the
// harness manages. Stdout and stderr of every managed process are
// captured to files so failure diagnostics never interleave with the
// test runner's own output.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State tracks a managed process through its lifetime.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// BuildError reports a build step that exited non-zero. The captured
// stderr is part of the message so the failing compile surfaces directly
// in the session abort.
type BuildError struct {
	Pkg    string
	Stderr string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s failed: %v\n%s", e.Pkg, e.Err, e.Stderr)
}

func (e *BuildError) Unwrap() error { return e.Err }

// LaunchError reports that the OS could not create the process.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Build compiles pkg inside dir into outPath with `go build`. A non-zero
// exit is returned as a *BuildError carrying the compiler's stderr.
func Build(ctx context.Context, dir, outPath, pkg string) error {
	cmd := exec.CommandContext(ctx, "go", "build", "-o", outPath, pkg)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &BuildError{Pkg: pkg, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// Spec describes one process to launch.
type Spec struct {
	// Name labels the process in errors and capture file names.
	Name string
	Path string
	Args []string
	// Env is the complete environment for the child. Nil inherits the
	// harness environment.
	Env []string
	Dir string
	// StdoutPath and StderrPath receive the captured output. Empty
	// discards the stream.
	StdoutPath string
	StderrPath string
}

// Managed is one launched OS process owned by the session manager.
type Managed struct {
	name string

	mu      sync.Mutex
	cmd     *exec.Cmd
	state   State
	stdout  *os.File
	stderr  *os.File
	done    chan struct{}
	waitErr error
}

// Start launches the process described by spec with its stdio captured.
func Start(spec Spec) (*Managed, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = spec.Env
	}

	m := &Managed{name: spec.Name, cmd: cmd, done: make(chan struct{})}

	var err error
	if spec.StdoutPath != "" {
		m.stdout, err = os.Create(spec.StdoutPath)
		if err != nil {
			return nil, &LaunchError{Name: spec.Name, Err: err}
		}
		cmd.Stdout = m.stdout
	}
	if spec.StderrPath != "" {
		m.stderr, err = os.Create(spec.StderrPath)
		if err != nil {
			m.closeCaptures()
			return nil, &LaunchError{Name: spec.Name, Err: err}
		}
		cmd.Stderr = m.stderr
	}

	if err := cmd.Start(); err != nil {
		m.closeCaptures()
		return nil, &LaunchError{Name: spec.Name, Err: err}
	}
	m.state = StateRunning

	go func() {
		err := cmd.Wait()
		m.mu.Lock()
		m.waitErr = err
		m.state = StateTerminated
		m.mu.Unlock()
		close(m.done)
	}()

	return m, nil
}

// Name returns the label the process was started with.
func (m *Managed) Name() string { return m.name }

// PID returns the OS process id, or 0 before start.
func (m *Managed) PID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil || m.cmd.Process == nil {
		return 0
	}
	return m.cmd.Process.Pid
}

// State returns the current liveness state.
func (m *Managed) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Alive reports whether the OS still knows the PID. Unlike State this
// consults the kernel, so it also catches a child killed from outside.
func (m *Managed) Alive() bool {
	return PIDAlive(m.PID())
}

// Stop terminates the process: SIGTERM first, SIGKILL if it has not
// exited within grace, then an unconditional wait for the reap. Calling
// Stop on an already-exited (or already-stopped) process is a no-op.
func (m *Managed) Stop(grace time.Duration) error {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		m.closeCaptures()
		return nil
	}
	process := m.cmd.Process
	m.mu.Unlock()

	// The process may exit between the state check and the signal;
	// ESRCH here just means the wait goroutine is about to fire.
	if err := process.Signal(syscall.SIGTERM); err != nil {
		<-m.done
		m.closeCaptures()
		return nil
	}

	select {
	case <-m.done:
	case <-time.After(grace):
		_ = process.Kill()
		<-m.done
	}
	m.closeCaptures()
	return nil
}

// Wait blocks until the process exits and returns its wait error.
func (m *Managed) Wait() error {
	<-m.done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

func (m *Managed) closeCaptures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stdout != nil {
		m.stdout.Close()
		m.stdout = nil
	}
	if m.stderr != nil {
		m.stderr.Close()
		m.stderr = nil
	}
}
