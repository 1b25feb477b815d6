// Command forecast-report prints a project's contract forecast.
//
//	forecast-report -project tower-a -include-pending -xlsx forecast.xlsx -verify
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/eshaffer321/sitebuy-backend/internal/cli"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
)

func main() {
	flags, set, err := cli.ParseReportFlags(cli.Args())
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadOrEnv(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !set["include-pending"] {
		flags.IncludePending = cfg.Forecast.IncludePending
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.RunReport(ctx, cfg, flags, os.Stdout); err != nil {
		if errors.Is(err, cli.ErrChecksFailed) {
			os.Exit(3)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
