// Command fnjit compiles typed function definitions and calls them through
// the tuple interface.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fnjit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fnjit:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
