package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that trigger a graceful shutdown.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal registration; after it is
// called a second signal terminates the process as usual.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}
