// Package config holds the session configuration for the onWatch E2E
// harness: ports, credentials, isolated paths, and timeouts for the two
// managed server processes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default port assignments. Chosen well outside the SUT's production
// range so a harness run can never collide with a real deployment.
const (
	DefaultSUTPort  = 19211
	DefaultMockPort = 19212
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" as well as plain nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Session describes one harness session: which checkout to build, where
// the two processes listen, what credentials they share, and where all
// isolated state lives. A single Session value is threaded through the
// lifecycle manager so ports and paths are never module-level globals.
type Session struct {
	// ProjectRoot is the onWatch source checkout the harness builds.
	ProjectRoot string `yaml:"project_root"`

	SUTPort  int `yaml:"sut_port"`
	MockPort int `yaml:"mock_port"`

	AdminUser string `yaml:"admin_user"`
	AdminPass string `yaml:"admin_pass"`

	// Provider credentials injected into both processes so the SUT
	// authenticates against the mock with keys the mock expects.
	SyntheticKey   string `yaml:"synthetic_key"`
	ZaiKey         string `yaml:"zai_key"`
	AnthropicToken string `yaml:"anthropic_token"`

	// Build outputs and isolated state. All must live outside any path
	// the real deployment uses (~/.onwatch is the production home).
	SUTBinary  string `yaml:"sut_binary"`
	MockBinary string `yaml:"mock_binary"`
	HomeDir    string `yaml:"home_dir"`
	DBPath     string `yaml:"db_path"`
	LogDir     string `yaml:"log_dir"`

	// MockHealthURL and SUTReadyURL override the derived readiness
	// endpoints. Empty means derive from the ports.
	MockHealthURL string `yaml:"mock_health_url"`
	SUTReadyURL   string `yaml:"sut_ready_url"`

	// SkipBuild starts prebuilt binaries as-is. Useful when iterating
	// on tests against an unchanged SUT.
	SkipBuild bool `yaml:"skip_build"`

	// PollSeconds is passed to the SUT's --interval flag. The harness
	// always runs the SUT in test mode, which shortens internal polling.
	PollSeconds int `yaml:"poll_seconds"`

	Headless bool `yaml:"headless"`

	BuildTimeout     Duration `yaml:"build_timeout"`
	MockReadyTimeout Duration `yaml:"mock_ready_timeout"`
	SUTReadyTimeout  Duration `yaml:"sut_ready_timeout"`
	ProbeInterval    Duration `yaml:"probe_interval"`
	StopGrace        Duration `yaml:"stop_grace"`
}

// Default returns a Session populated with the stock E2E constants.
func Default() *Session {
	return &Session{
		SUTPort:  DefaultSUTPort,
		MockPort: DefaultMockPort,

		AdminUser: "admin",
		AdminPass: "testpass123",

		SyntheticKey:   "syn_test_e2e_key",
		ZaiKey:         "zai_test_e2e_key",
		AnthropicToken: "anth_test_e2e_token",

		SUTBinary:  "/tmp/onwatch-test",
		MockBinary: "/tmp/mockserver-test",
		HomeDir:    "/tmp/onwatch-e2e-home",
		DBPath:     "/tmp/onwatch-e2e.db",
		LogDir:     "/tmp/onwatch-e2e-logs",

		PollSeconds: 10,
		Headless:    true,

		BuildTimeout:     Duration(2 * time.Minute),
		MockReadyTimeout: Duration(15 * time.Second),
		SUTReadyTimeout:  Duration(30 * time.Second),
		ProbeInterval:    Duration(500 * time.Millisecond),
		StopGrace:        Duration(5 * time.Second),
	}
}

// Load reads a YAML override file on top of the defaults. Only keys
// present in the file are replaced.
func Load(path string) (*Session, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies the environment overrides the e2e suite honors:
// ONWATCH_E2E_CONFIG points at a YAML override file and
// ONWATCH_E2E_PROJECT_ROOT at the SUT checkout.
func FromEnv() (*Session, error) {
	cfg := Default()
	if path := os.Getenv("ONWATCH_E2E_CONFIG"); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if root := os.Getenv("ONWATCH_E2E_PROJECT_ROOT"); root != "" {
		cfg.ProjectRoot = root
	}
	if os.Getenv("E2E_HEADLESS") == "false" {
		cfg.Headless = false
	}
	return cfg, nil
}

// Validate checks the invariants the lifecycle manager relies on.
func (s *Session) Validate() error {
	if s.ProjectRoot == "" && !s.SkipBuild {
		return fmt.Errorf("project_root is required unless skip_build is set")
	}
	if s.SUTPort <= 0 || s.MockPort <= 0 {
		return fmt.Errorf("ports must be positive (sut=%d mock=%d)", s.SUTPort, s.MockPort)
	}
	if s.SUTPort == s.MockPort {
		return fmt.Errorf("sut and mock ports collide on %d", s.SUTPort)
	}
	if s.HomeDir == "" || s.DBPath == "" {
		return fmt.Errorf("isolated home_dir and db_path must be set")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if within(s.HomeDir, home) || within(s.DBPath, home) {
			return fmt.Errorf("isolated paths must not live under the real home %s", home)
		}
	}
	return nil
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// BaseURL returns the SUT's base URL.
func (s *Session) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", s.SUTPort)
}

// MockURL returns the mock server's base URL.
func (s *Session) MockURL() string {
	return fmt.Sprintf("http://localhost:%d", s.MockPort)
}

// MockHealth returns the readiness endpoint for the mock server.
func (s *Session) MockHealth() string {
	if s.MockHealthURL != "" {
		return s.MockHealthURL
	}
	return s.MockURL() + "/admin/requests"
}

// SUTReady returns the readiness endpoint for the SUT. The login page is
// the landmark: once it serves 200 the web layer is fully wired.
func (s *Session) SUTReady() string {
	if s.SUTReadyURL != "" {
		return s.SUTReadyURL
	}
	return s.BaseURL() + "/login"
}
