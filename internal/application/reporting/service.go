// Package reporting assembles project snapshots from storage and runs the
// cost forecast over them.
package reporting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

// Verification is a report together with its consistency checks.
type Verification struct {
	Report *forecast.Report `json:"report"`
	Checks []forecast.Check `json:"checks"`
	Failed []forecast.Check `json:"failed"`
	OK     bool             `json:"ok"`
}

// ForecastService produces contract forecasts for projects.
type ForecastService struct {
	repo   storage.Repository
	engine *forecast.Engine
	logger *slog.Logger
}

// NewForecastService creates a forecast service. A nil engine uses the
// default options.
func NewForecastService(repo storage.Repository, engine *forecast.Engine, logger *slog.Logger) *ForecastService {
	if engine == nil {
		engine = forecast.NewEngine(forecast.Options{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastService{repo: repo, engine: engine, logger: logger}
}

// Snapshot reads every record the forecast needs for a project.
func (s *ForecastService) Snapshot(ctx context.Context, projectID string) (*forecast.Snapshot, error) {
	snap := &forecast.Snapshot{ProjectID: projectID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Estimates, err = s.repo.ListContractEstimates(gctx, projectID)
		return wrap("contract estimates", err)
	})
	g.Go(func() error {
		var err error
		snap.PurchaseOrders, err = s.repo.ListPurchaseOrdersByProject(gctx, projectID)
		return wrap("purchase orders", err)
	})
	g.Go(func() error {
		var err error
		snap.Deliveries, err = s.repo.ListDeliveriesByProject(gctx, projectID)
		return wrap("deliveries", err)
	})
	g.Go(func() error {
		var err error
		snap.Invoices, err = s.repo.ListInvoicesByProject(gctx, projectID)
		return wrap("invoices", err)
	})
	g.Go(func() error {
		var err error
		snap.Materials, err = s.repo.ListMaterials(gctx, projectID)
		return wrap("materials", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// GenerateReport builds the project forecast. Identity failures are logged
// at error level and do not fail the report.
func (s *ForecastService) GenerateReport(ctx context.Context, projectID string, includePending bool) (*forecast.Report, error) {
	v, err := s.Verify(ctx, projectID, includePending)
	if err != nil {
		return nil, err
	}
	return v.Report, nil
}

// Verify builds the project forecast and returns the consistency checks
// alongside it.
func (s *ForecastService) Verify(ctx context.Context, projectID string, includePending bool) (*Verification, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", procurement.ErrValidation)
	}
	snap, err := s.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report, err := s.engine.GenerateReport(snap, includePending)
	if err != nil {
		return nil, fmt.Errorf("forecast project %s: %w", projectID, err)
	}

	checks := forecast.VerificationChecks(report)
	failed := forecast.Failed(checks)
	for _, c := range failed {
		s.logger.Error("forecast check failed",
			"project_id", projectID,
			"cost_code", c.CostCode,
			"check", c.Name,
			"expected", c.Expected,
			"actual", c.Actual,
		)
	}
	s.logger.Info("forecast generated",
		"project_id", projectID,
		"cost_codes", len(report.Lines),
		"include_pending", includePending,
		"projected_gain_loss", report.Totals.ProjectedGainLoss,
	)

	return &Verification{Report: report, Checks: checks, Failed: failed, OK: len(failed) == 0}, nil
}

// CreateEstimate records a budget line for a cost code.
func (s *ForecastService) CreateEstimate(ctx context.Context, est *procurement.ContractEstimate) (*procurement.ContractEstimate, error) {
	switch {
	case est.ProjectID == "":
		return nil, fmt.Errorf("%w: project_id is required", procurement.ErrValidation)
	case est.CostCode == "":
		return nil, fmt.Errorf("%w: cost_code is required", procurement.ErrValidation)
	case est.AwardedValue.IsNegative():
		return nil, fmt.Errorf("%w: awarded_value must not be negative", procurement.ErrValidation)
	}
	if est.ID == "" {
		est.ID = uuid.NewString()
	}
	if err := s.repo.SaveContractEstimate(ctx, est); err != nil {
		return nil, err
	}
	s.logger.Info("contract estimate saved", "project_id", est.ProjectID,
		"cost_code", est.CostCode, "awarded_value", est.AwardedValue)
	return est, nil
}

// CreateMaterial records a project material and the cost code its PO
// lines roll up to.
func (s *ForecastService) CreateMaterial(ctx context.Context, m *procurement.Material) (*procurement.Material, error) {
	switch {
	case m.ProjectID == "":
		return nil, fmt.Errorf("%w: project_id is required", procurement.ErrValidation)
	case m.Name == "":
		return nil, fmt.Errorf("%w: name is required", procurement.ErrValidation)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := s.repo.SaveMaterial(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
