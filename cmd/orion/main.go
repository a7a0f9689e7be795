package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sencha/orion-core/cmd"
	"github.com/sencha/orion-core/internal/observability"
)

// osExit allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	// Ctrl+C cancels the run; the harness drains and reporters still flush.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		observability.Sync()
		osExit(exitCode(err))
	}
	observability.Sync()
}

// exitCode maps an execution error to the process exit status. An
// interrupted run exits with the shell's SIGINT convention.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
