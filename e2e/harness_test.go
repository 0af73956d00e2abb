//go:build e2e
// +build e2e

// Package e2e drives a full onWatch session through a real browser.
// TestMain builds and starts the mock upstream and the SUT once for the
// whole run; each scenario gets its own browser so no UI state leaks
// between tests.
package e2e

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/onwatch/e2e/internal/browser"
	"github.com/onwatch/e2e/internal/config"
	"github.com/onwatch/e2e/internal/pages"
	"github.com/onwatch/e2e/internal/session"
)

var (
	cfg     *config.Session
	baseURL string
)

func TestMain(m *testing.M) {
	os.Exit(runMain(m))
}

func runMain(m *testing.M) int {
	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "e2e:", err)
		return 1
	}
	if cfg.ProjectRoot == "" && !cfg.SkipBuild {
		fmt.Println("e2e: ONWATCH_E2E_PROJECT_ROOT not set, skipping suite")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := session.NewManager(cfg)
	handle, err := mgr.Up(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "e2e: session setup:", err)
		return 1
	}
	baseURL = handle.BaseURL

	code := m.Run()

	if err := mgr.Down(); err != nil {
		fmt.Fprintln(os.Stderr, "e2e: teardown:", err)
	}
	return code
}

// newBrowser opens a fresh browser for one scenario, tied to the test's
// lifetime. A failing test leaves a screenshot next to its log file.
func newBrowser(t *testing.T, logger *TestLogger) *browser.Session {
	t.Helper()
	b, err := browser.New(context.Background(), browser.Options{
		Headless: cfg.Headless,
		Logf:     logger.Log,
	})
	if err != nil {
		t.Fatalf("launch browser: %v", err)
	}
	t.Cleanup(func() {
		if t.Failed() {
			path := filepath.Join(screenshotDir(), sanitize(t.Name())+".png")
			if err := b.CaptureScreenshot(path); err != nil {
				logger.Log("screenshot failed: %v", err)
			} else {
				logger.Log("screenshot saved to %s", path)
			}
		}
		b.Close()
	})
	return b
}

func screenshotDir() string {
	dir := os.Getenv("E2E_LOG_DIR")
	if dir == "" {
		dir = "/tmp/onwatch-e2e-logs"
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ' ':
			return '_'
		}
		return r
	}, name)
}

// loginPage opens the login screen and waits for its landmark.
func loginPage(t *testing.T, b *browser.Session) *pages.Login {
	t.Helper()
	p := pages.NewLogin(b, baseURL)
	if err := p.Goto(); err != nil {
		t.Fatalf("open login page: %v", err)
	}
	return p
}

// authedPage logs in with the admin credentials and lands on the
// dashboard.
func authedPage(t *testing.T, b *browser.Session) *pages.Dashboard {
	t.Helper()
	return authedPageAs(t, b, cfg.AdminUser, cfg.AdminPass)
}

func authedPageAs(t *testing.T, b *browser.Session, user, pass string) *pages.Dashboard {
	t.Helper()
	login := loginPage(t, b)
	if err := login.Submit(user, pass); err != nil {
		t.Fatalf("submit login: %v", err)
	}
	if err := b.WaitVisible(".app-header", 10*time.Second); err != nil {
		t.Fatalf("dashboard did not render after login: %v", err)
	}
	return pages.NewDashboard(b, baseURL)
}

// settingsReady logs in and opens the settings screen.
func settingsReady(t *testing.T, b *browser.Session) *pages.Settings {
	t.Helper()
	authedPage(t, b)
	p := pages.NewSettings(b, baseURL)
	if err := p.Goto(); err != nil {
		t.Fatalf("open settings page: %v", err)
	}
	return p
}

// eventually retries fn until it reports true or the deadline passes.
// UI state driven by async fetches settles at its own pace; polling
// beats fixed sleeps on both speed and flake rate.
func eventually(timeout, interval time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(interval)
	}
	return fn()
}

// selectProviderIfPresent switches to the named provider tab when it is
// configured and reports whether the switch happened.
func selectProviderIfPresent(t *testing.T, dash *pages.Dashboard, label string) bool {
	t.Helper()
	for _, tab := range dash.ProviderTabs() {
		if strings.Contains(tab, label) {
			if err := dash.SelectProvider(label); err != nil {
				t.Fatalf("select provider %s: %v", label, err)
			}
			return true
		}
	}
	return false
}
