package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eshaffer321/sitebuy-backend/internal/adapters/export"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/logging"
)

// ErrChecksFailed is returned by RunReport when -verify finds a broken
// identity.
var ErrChecksFailed = errors.New("forecast verification failed")

// RunReport prints a project's forecast and optionally exports it.
func RunReport(ctx context.Context, cfg *config.Config, flags *ReportFlags, stdout io.Writer) error {
	if flags.ProjectID == "" {
		return errors.New("-project is required")
	}
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "report")

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	v, err := app.Forecast.Verify(ctx, flags.ProjectID, flags.IncludePending)
	if err != nil {
		return err
	}
	PrintForecast(stdout, v.Report)

	if flags.CSVPath != "" {
		if err := writeFile(flags.CSVPath, v.Report, export.WriteCSV); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nWrote %s\n", flags.CSVPath)
	}
	if flags.XLSXPath != "" {
		if err := writeFile(flags.XLSXPath, v.Report, export.WriteXLSX); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", flags.XLSXPath)
	}

	if flags.Verify {
		fmt.Fprintln(stdout)
		PrintChecks(stdout, v.Checks)
		if !v.OK {
			return ErrChecksFailed
		}
	}
	return nil
}

func writeFile(path string, report *forecast.Report, write func(io.Writer, *forecast.Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// RunSweep re-matches every pending invoice once.
func RunSweep(ctx context.Context, cfg *config.Config, flags *SweepFlags, stdout io.Writer) error {
	if flags.Concurrency > 0 {
		cfg.Sweep.Concurrency = flags.Concurrency
	}
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "sweep")

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Invoicing.SweepPending(ctx)
	if err != nil {
		return err
	}
	PrintSweepSummary(stdout, result)
	return nil
}
