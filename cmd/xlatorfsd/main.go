// Command xlatorfsd assembles a translator graph from a config file and
// runs it until signaled, per SPEC_FULL.md §4.14.
package main

import (
	"context"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	Execute(ctx)
}
