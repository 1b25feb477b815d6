package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/sitebuy-backend/internal/cli"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseServeFlags(cli.Args())
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadOrEnv(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
