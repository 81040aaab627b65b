// Command tfc runs declaratively defined tests under a process-slot budget.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tfc/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	code := cli.GetExitCode(err)

	// A failed run has already printed its summary.
	var exitErr *cli.ExitError
	if err != nil && !(errors.As(err, &exitErr) && code == cli.ExitFailure) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}
