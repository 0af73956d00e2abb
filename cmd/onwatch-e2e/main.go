// Command onwatch-e2e is the debug entry point for the E2E harness:
// bring the session up outside the test runner, check readiness, follow
// process logs, and clean up after crashed runs.
package main

import (
	"os"

	"github.com/onwatch/e2e/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
