package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newCLIApp(os.Stdin, os.Stdout, os.Stderr)
	err := app.RunContext(ctx, reorderArgs(os.Args))
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps the error returned by the app to a process exit code.
// Action errors have already been printed; flag parsing errors have not.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr cli.ExitCoder
	if stderrors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 2
}
