package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/onwatch/e2e/internal/probe"
)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe both readiness endpoints once and report",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 3*time.Second, "total probe budget per endpoint")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets := []struct {
		name string
		url  string
	}{
		{"mock", cfg.MockHealth()},
		{"onwatch", cfg.SUTReady()},
	}

	ctx := context.Background()
	allReady := true
	for _, tgt := range targets {
		if probe.WaitReady(ctx, tgt.url, checkTimeout, 250*time.Millisecond) {
			fmt.Printf("%s %-8s %s\n", styleOK.Render("ready"), tgt.name, styleDim.Render(tgt.url))
		} else {
			fmt.Printf("%s %-8s %s\n", styleFail.Render("down "), tgt.name, styleDim.Render(tgt.url))
			allReady = false
		}
	}
	if !allReady {
		return fmt.Errorf("not all endpoints ready")
	}
	return nil
}
