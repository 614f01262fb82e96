package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/cmd"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/exitcode"
)

func main() {
	// Cancel the run on interrupt; the report already holds every finished plugin.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\nRun interrupted")
			exitcode.Exit(exitcode.Interrupted)
		}

		if err != exitcode.ErrPluginFailures {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
