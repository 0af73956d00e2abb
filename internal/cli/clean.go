package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onwatch/e2e/internal/isolation"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove isolated state and binaries left by a crashed run",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	leftovers := isolation.Leftovers(cfg)
	if len(leftovers) == 0 {
		fmt.Println(styleDim.Render("nothing to clean"))
		return nil
	}

	for _, p := range leftovers {
		if err := os.RemoveAll(p); err != nil {
			fmt.Printf("%s %s (%v)\n", styleFail.Render("kept "), p, err)
			continue
		}
		fmt.Printf("%s %s\n", styleOK.Render("removed"), p)
	}
	return nil
}
