package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onwatch/e2e/internal/proc"
	"github.com/onwatch/e2e/internal/session"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Build and start both servers, then block until interrupted",
	Long: `up runs the full session lifecycle: build and start the mock server,
wait for its health endpoint, prepare the isolated environment, build and
start onWatch against the mock, and wait for the login page. The session
stays up until SIGINT/SIGTERM, then tears down in reverse order.`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := session.NewManager(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println(styleDim.Render("starting session..."))
	handle, err := mgr.Up(ctx)
	if err != nil {
		// Up already rolled back anything it started.
		return err
	}
	// Teardown must run even when interrupted mid-wait.
	defer func() {
		if derr := mgr.Down(); derr != nil {
			fmt.Fprintln(os.Stderr, styleDim.Render("teardown diagnostics: "+derr.Error()))
		}
	}()

	fmt.Println(styleOK.Render("session active"))
	fmt.Printf("  mock     %s (pid %d %s, ready %s)\n", handle.MockURL, handle.Mock.PID(), pidStatus(handle.Mock.PID()), handle.MockReadyAt.Format("15:04:05.000"))
	fmt.Printf("  onwatch  %s (pid %d %s, ready %s)\n", handle.BaseURL, handle.SUT.PID(), pidStatus(handle.SUT.PID()), handle.SUTReadyAt.Format("15:04:05.000"))
	fmt.Printf("  login    %s / %s\n", cfg.AdminUser, cfg.AdminPass)
	fmt.Println(styleDim.Render("press Ctrl-C to tear down"))

	<-ctx.Done()
	fmt.Println(styleDim.Render("tearing down..."))
	return nil
}

func pidStatus(pid int) string {
	status, err := proc.PIDStatus(pid)
	if err != nil {
		return "?"
	}
	return status
}
