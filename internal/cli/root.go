// Package cli implements the onwatch-e2e debug commands: bring the
// harness session up interactively, probe readiness, follow captured
// process output, and clean leftovers from crashed runs.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/onwatch/e2e/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "onwatch-e2e",
	Short: "Lifecycle tooling for the onWatch end-to-end harness",
	Long: `onwatch-e2e manages the two server processes the E2E suite drives:
the mock upstream API server and the onWatch dashboard itself, each built
from the project checkout and run against isolated state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleFail.Render("error:"), err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config override file")
}

func loadConfig() (*config.Session, error) {
	if configPath != "" {
		os.Setenv("ONWATCH_E2E_CONFIG", configPath)
	}
	return config.FromEnv()
}

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func init() {
	// Plain output when piped; lipgloss would otherwise embed escapes
	// into logs.
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		styleOK = lipgloss.NewStyle()
		styleFail = lipgloss.NewStyle()
		styleDim = lipgloss.NewStyle()
	}
}
