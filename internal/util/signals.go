package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jzx17/goexecutor/internal/logging"
)

// SetupSignalHandler creates a context that is cancelled on receiving SIGINT or SIGTERM.
// A second signal will force immediate exit.
func SetupSignalHandler(logger *logging.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Log("received shutdown signal")
		cancel()

		// Second signal forces immediate exit
		sig = <-sigCh
		logger.Warning().Str("signal", sig.String()).Log("received second shutdown signal, forcing exit")
		os.Exit(1)
	}()

	return ctx
}
