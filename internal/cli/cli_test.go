package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/sitebuy-backend/internal/adapters/notify"
	"github.com/eshaffer321/sitebuy-backend/internal/application/invoicing"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "cli.db")
	cfg.Observability.Logging.Level = "error"
	return cfg
}

func seed(t *testing.T, cfg *config.Config) {
	t.Helper()
	app, err := NewApp(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	ctx := context.Background()
	require.NoError(t, app.Store.SaveContractEstimate(ctx, &procurement.ContractEstimate{
		ID: "est-1", ProjectID: "proj-1", CostCode: "03-300", Description: "Concrete", AwardedValue: money.Must("10000"),
	}))
	require.NoError(t, app.Store.SaveInvoice(ctx, &procurement.Invoice{
		ID: "inv-1", OrganizationID: "org-1", ProjectID: "proj-1", Number: "INV-1",
		Status: procurement.InvoiceStatusPending, TotalAmount: money.Must("250"),
	}))
}

func TestRunReport(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg)
	csvPath := filepath.Join(t.TempDir(), "forecast.csv")

	var out bytes.Buffer
	err := RunReport(context.Background(), cfg, &ReportFlags{ProjectID: "proj-1", CSVPath: csvPath, Verify: true}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Contract forecast: proj-1")
	assert.Contains(t, out.String(), "03-300 - Concrete")
	assert.Contains(t, out.String(), "$11,500.00")
	assert.Contains(t, out.String(), "checks passed")

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, forecast.TotalsLabel, records[2][0])
}

func TestRunReport_RequiresProject(t *testing.T) {
	err := RunReport(context.Background(), testConfig(t), &ReportFlags{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "-project")
}

func TestRunSweep(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg)

	var out bytes.Buffer
	require.NoError(t, RunSweep(context.Background(), cfg, &SweepFlags{Concurrency: 2}, &out))
	assert.Contains(t, out.String(), "Scanned=1 Approved=0 Exceptions=1 Failed=0")
}

func TestPrintChecks_ListsFailures(t *testing.T) {
	var out bytes.Buffer
	PrintChecks(&out, []forecast.Check{
		{CostCode: "03-300", Name: "N = M - I", Expected: money.Must("100"), Actual: money.Must("90")},
		{CostCode: "03-300", Name: "C", OK: true},
	})
	assert.Contains(t, out.String(), "1 of 2 checks FAILED")
	assert.Contains(t, out.String(), "03-300 [N = M - I]: expected $100.00, got $90.00")
}

func TestPrintSweepSummary(t *testing.T) {
	var out bytes.Buffer
	PrintSweepSummary(&out, invoicing.SweepResult{Scanned: 4, Approved: 2, Exceptions: 1, Skipped: 1})
	assert.Contains(t, out.String(), "Scanned=4 Approved=2 Exceptions=1 Skipped=1 Failed=0")
}

func TestNewNotifier(t *testing.T) {
	n := NewNotifier(config.NotificationsConfig{}, discardLogger())
	assert.IsType(t, &notify.LogNotifier{}, n)

	n = NewNotifier(config.NotificationsConfig{WebhookURL: "https://hooks.example.com/ap", MaxRetries: 2}, discardLogger())
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}

func TestParseReportFlags(t *testing.T) {
	flags, set, err := ParseReportFlags([]string{"-project", "proj-9", "-verify"})
	require.NoError(t, err)
	assert.Equal(t, "proj-9", flags.ProjectID)
	assert.True(t, flags.Verify)
	assert.False(t, set["include-pending"])
	assert.Equal(t, "config.yaml", flags.ConfigPath)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
