package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var followLogs bool

var logsCmd = &cobra.Command{
	Use:       "logs [mock|sut]",
	Short:     "Print a managed process's captured output",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"mock", "sut"},
	RunE:      runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&followLogs, "follow", "f", false, "keep printing as output is appended")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := args[0]
	path := filepath.Join(cfg.LogDir, name+".stdout.log")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("no captured output at %s (is the session up?): %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(os.Stdout, f); err != nil {
		return err
	}
	if !followLogs {
		return nil
	}
	return follow(f, path)
}

// follow prints data appended to f until interrupted. The watcher fires
// on every write from the captured process; truncation restarts from the
// top of the file.
func follow(f *os.File, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
				if st, err := os.Stat(path); err == nil && st.Size() < pos {
					if _, err := f.Seek(0, io.SeekStart); err != nil {
						return err
					}
				}
			}
			if _, err := io.Copy(os.Stdout, f); err != nil {
				return err
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return werr
		}
	}
}
