// Command multitimer runs exam countdown timers from a terminal or a browser.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/multitimer/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
