// watchdogctl - command line client for the watchdog services
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Build info - set by ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRoot(Version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
