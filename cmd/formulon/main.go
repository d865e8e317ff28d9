// Command formulon compiles dataset formulas into SQL and runs queries.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/formulon/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own failures; only flag and usage errors
		// reach here unprinted.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
