// Command match-sweep re-runs the three-way match on every pending invoice
// once and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/sitebuy-backend/internal/cli"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseSweepFlags(cli.Args())
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadOrEnv(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RunSweep(ctx, cfg, flags, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		os.Exit(1)
	}
}
