// Package isolation scopes a harness session to throwaway filesystem
// state. The SUT auto-detects its canonical database under the user's
// home directory, so HOME must be overridden before the process ever
// starts; isolation cannot be retrofitted onto a running server.
package isolation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onwatch/e2e/internal/config"
)

// Env is one session's isolated filesystem footprint plus the
// environment overrides that route the SUT into it.
type Env struct {
	HomeDir string
	DBPath  string

	overrides map[string]string
}

// Prepare wipes any stale isolated state from a previous run and
// recreates a clean home directory. It must run before the SUT process
// starts.
func Prepare(cfg *config.Session) (*Env, error) {
	for _, p := range Companions(cfg.DBPath) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale %s: %w", p, err)
		}
	}
	if err := os.RemoveAll(cfg.HomeDir); err != nil {
		return nil, fmt.Errorf("remove stale home %s: %w", cfg.HomeDir, err)
	}
	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create home %s: %w", cfg.HomeDir, err)
	}

	return &Env{
		HomeDir: cfg.HomeDir,
		DBPath:  cfg.DBPath,
		overrides: map[string]string{
			"HOME":               cfg.HomeDir,
			"ONWATCH_ADMIN_PASS": cfg.AdminPass,
			"SYNTHETIC_API_KEY":  cfg.SyntheticKey,
			"ZAI_API_KEY":        cfg.ZaiKey,
			"ZAI_BASE_URL":       cfg.MockURL(),
			"ANTHROPIC_TOKEN":    cfg.AnthropicToken,
		},
	}, nil
}

// Environ merges the isolation overrides into base (usually
// os.Environ()) and returns the child environment.
func (e *Env) Environ(base []string) []string {
	env := make([]string, 0, len(base)+len(e.overrides))
	for _, kv := range base {
		if key, _, ok := strings.Cut(kv, "="); ok {
			if _, shadowed := e.overrides[key]; shadowed {
				continue
			}
		}
		env = append(env, kv)
	}
	for k, v := range e.overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// Discard removes the isolated home tree and the database with its side
// files. Every removal is independently best-effort: teardown must never
// stop at the first missing file. The joined error exists only for
// diagnostics.
func (e *Env) Discard() error {
	var errs []error
	if err := os.RemoveAll(e.HomeDir); err != nil {
		errs = append(errs, fmt.Errorf("remove home %s: %w", e.HomeDir, err))
	}
	for _, p := range Companions(e.DBPath) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Companions lists the database file together with the SQLite side files
// that may exist alongside it.
func Companions(dbPath string) []string {
	return []string{
		dbPath,
		dbPath + "-journal",
		dbPath + "-wal",
		dbPath + "-shm",
	}
}

// Leftovers reports which isolated paths from cfg still exist on disk.
// Used by the clean command to show what a crashed run left behind.
func Leftovers(cfg *config.Session) []string {
	candidates := append(Companions(cfg.DBPath), cfg.HomeDir, cfg.SUTBinary, cfg.MockBinary)
	var found []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			found = append(found, filepath.Clean(p))
		}
	}
	return found
}
