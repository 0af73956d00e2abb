// Package session composes the launcher, prober, and isolator into the
// ordered setup and teardown of the two server processes. The mock API
// server must be ready before the SUT starts, because the SUT reads the
// mock's base URL from its environment once at startup.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/onwatch/e2e/internal/config"
	"github.com/onwatch/e2e/internal/isolation"
	"github.com/onwatch/e2e/internal/probe"
	"github.com/onwatch/e2e/internal/proc"
)

// Phase is the lifecycle manager's state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseMockStarting
	PhaseMockReady
	PhaseSUTBuilding
	PhaseSUTStarting
	PhaseSUTReady
	PhaseActive
	PhaseTearingDown
)

var phaseNames = map[Phase]string{
	PhaseIdle:         "idle",
	PhaseMockStarting: "mock-starting",
	PhaseMockReady:    "mock-ready",
	PhaseSUTBuilding:  "sut-building",
	PhaseSUTStarting:  "sut-starting",
	PhaseSUTReady:     "sut-ready",
	PhaseActive:       "active",
	PhaseTearingDown:  "tearing-down",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// SetupError is a session-fatal lifecycle failure. It names the phase
// and the process so the single abort message identifies what never came
// up, before any test has run.
type SetupError struct {
	Phase   Phase
	Process string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("session setup failed in phase %s (%s): %v", e.Phase, e.Process, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Handle is the composed result of a successful setup: both live
// processes, the isolated environment, and the resolved base URLs.
// Readiness and start instants are recorded so the ordering invariant
// (mock ready strictly before SUT start) stays observable.
type Handle struct {
	Mock *proc.Managed
	SUT  *proc.Managed
	Env  *isolation.Env

	BaseURL string
	MockURL string

	MockReadyAt  time.Time
	SUTStartedAt time.Time
	SUTReadyAt   time.Time
}

// Manager owns the session lifecycle. One Manager runs one session at a
// time; ports and isolated paths in the config are exclusively held for
// its duration.
type Manager struct {
	cfg *config.Session

	mu     sync.Mutex
	phase  Phase
	handle *Handle
}

// NewManager returns an idle manager for cfg.
func NewManager(cfg *config.Session) *Manager {
	return &Manager{cfg: cfg}
}

// Phase returns the manager's current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Handle returns the active session handle, or nil outside PhaseActive.
func (m *Manager) Handle() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// Up runs the full setup sequence and yields the session handle. Any
// fatal step rolls back everything started so far: no partial session is
// ever exposed. On success the caller owns exactly one Down.
func (m *Manager) Up(ctx context.Context) (handle *Handle, err error) {
	if err := m.cfg.Validate(); err != nil {
		return nil, &SetupError{Phase: PhaseIdle, Process: "config", Err: err}
	}
	if err := os.MkdirAll(m.cfg.LogDir, 0o755); err != nil {
		return nil, &SetupError{Phase: PhaseIdle, Process: "log dir", Err: err}
	}

	// Rollback stack: every acquired resource registers its release
	// here, and a failed step releases in reverse order on the way out.
	var cleanups []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		m.setPhase(PhaseIdle)
	}()

	h := &Handle{BaseURL: m.cfg.BaseURL(), MockURL: m.cfg.MockURL()}

	// Mock server first: the SUT reads its URL at startup.
	m.setPhase(PhaseMockStarting)
	if !m.cfg.SkipBuild {
		buildCtx, cancel := context.WithTimeout(ctx, m.cfg.BuildTimeout.Std())
		err = proc.Build(buildCtx, m.cfg.ProjectRoot, m.cfg.MockBinary, "./internal/testutil/cmd/mockserver")
		cancel()
		if err != nil {
			return nil, &SetupError{Phase: PhaseMockStarting, Process: "mock server", Err: err}
		}
		cleanups = append(cleanups, func() { os.Remove(m.cfg.MockBinary) })
	}

	h.Mock, err = proc.Start(proc.Spec{
		Name: "mock",
		Path: m.cfg.MockBinary,
		Args: []string{
			fmt.Sprintf("--port=%d", m.cfg.MockPort),
			"--syn-key=" + m.cfg.SyntheticKey,
			"--zai-key=" + m.cfg.ZaiKey,
			"--anth-token=" + m.cfg.AnthropicToken,
		},
		StdoutPath: m.captureFile("mock", "stdout"),
		StderrPath: m.captureFile("mock", "stderr"),
	})
	if err != nil {
		return nil, &SetupError{Phase: PhaseMockStarting, Process: "mock server", Err: err}
	}
	cleanups = append(cleanups, func() { _ = h.Mock.Stop(m.cfg.StopGrace.Std()) })

	if !probe.WaitReady(ctx, m.cfg.MockHealth(), m.cfg.MockReadyTimeout.Std(), m.cfg.ProbeInterval.Std()) {
		err = fmt.Errorf("no success from %s within %s", m.cfg.MockHealth(), m.cfg.MockReadyTimeout.Std())
		return nil, &SetupError{Phase: PhaseMockStarting, Process: "mock server", Err: err}
	}
	h.MockReadyAt = time.Now()
	m.setPhase(PhaseMockReady)

	// Isolation must be in place before the SUT can probe for its
	// canonical data directory.
	h.Env, err = isolation.Prepare(m.cfg)
	if err != nil {
		return nil, &SetupError{Phase: PhaseMockReady, Process: "isolation", Err: err}
	}
	cleanups = append(cleanups, func() { _ = h.Env.Discard() })

	m.setPhase(PhaseSUTBuilding)
	if !m.cfg.SkipBuild {
		buildCtx, cancel := context.WithTimeout(ctx, m.cfg.BuildTimeout.Std())
		err = proc.Build(buildCtx, m.cfg.ProjectRoot, m.cfg.SUTBinary, ".")
		cancel()
		if err != nil {
			return nil, &SetupError{Phase: PhaseSUTBuilding, Process: "onwatch", Err: err}
		}
		cleanups = append(cleanups, func() { os.Remove(m.cfg.SUTBinary) })
	}

	m.setPhase(PhaseSUTStarting)
	h.SUTStartedAt = time.Now()
	h.SUT, err = proc.Start(proc.Spec{
		Name: "sut",
		Path: m.cfg.SUTBinary,
		Args: []string{
			"--debug",
			fmt.Sprintf("--port=%d", m.cfg.SUTPort),
			fmt.Sprintf("--interval=%d", m.cfg.PollSeconds),
			"--test",
			"--db=" + m.cfg.DBPath,
		},
		Env:        h.Env.Environ(os.Environ()),
		StdoutPath: m.captureFile("sut", "stdout"),
		StderrPath: m.captureFile("sut", "stderr"),
	})
	if err != nil {
		return nil, &SetupError{Phase: PhaseSUTStarting, Process: "onwatch", Err: err}
	}
	cleanups = append(cleanups, func() { _ = h.SUT.Stop(m.cfg.StopGrace.Std()) })

	if !probe.WaitReady(ctx, m.cfg.SUTReady(), m.cfg.SUTReadyTimeout.Std(), m.cfg.ProbeInterval.Std()) {
		err = fmt.Errorf("no success from %s within %s", m.cfg.SUTReady(), m.cfg.SUTReadyTimeout.Std())
		return nil, &SetupError{Phase: PhaseSUTStarting, Process: "onwatch", Err: err}
	}
	h.SUTReadyAt = time.Now()
	m.setPhase(PhaseSUTReady)

	m.mu.Lock()
	m.phase = PhaseActive
	m.handle = h
	m.mu.Unlock()
	return h, nil
}

// Down tears the session back to idle: SUT first, then mock (reverse of
// start order), then the isolated environment and build artifacts. Every
// step is independently best-effort; the joined error is diagnostic only
// and must never mask collected test results.
func (m *Manager) Down() error {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.phase = PhaseTearingDown
	m.mu.Unlock()

	defer m.setPhase(PhaseIdle)
	if h == nil {
		return nil
	}

	var errs []error
	if h.SUT != nil {
		if err := h.SUT.Stop(m.cfg.StopGrace.Std()); err != nil {
			errs = append(errs, fmt.Errorf("stop onwatch: %w", err))
		}
	}
	if h.Mock != nil {
		if err := h.Mock.Stop(m.cfg.StopGrace.Std()); err != nil {
			errs = append(errs, fmt.Errorf("stop mock: %w", err))
		}
	}
	if h.Env != nil {
		if err := h.Env.Discard(); err != nil {
			errs = append(errs, fmt.Errorf("discard isolation: %w", err))
		}
	}
	if !m.cfg.SkipBuild {
		for _, bin := range []string{m.cfg.SUTBinary, m.cfg.MockBinary} {
			if err := os.Remove(bin); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove %s: %w", bin, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) captureFile(name, stream string) string {
	return filepath.Join(m.cfg.LogDir, name+"."+stream+".log")
}
