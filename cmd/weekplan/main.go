package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"weekplan/internal/cli"
	appLog "weekplan/internal/log"
)

var version = "0.1.0-dev"

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := cli.Execute(ctx, version); err != nil {
		appLog.Error("weekplan failed", err)
		os.Exit(1)
	}
}
