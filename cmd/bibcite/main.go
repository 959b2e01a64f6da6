package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/bibcite/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		// Anything cobra rejects before a command runs is a usage error.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
