package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/sitebuy-backend/internal/adapters/export"
	"github.com/eshaffer321/sitebuy-backend/internal/api/dto"
	"github.com/eshaffer321/sitebuy-backend/internal/application/reporting"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ForecastHandler serves contract forecasting reports and their inputs.
type ForecastHandler struct {
	*Base
	svc            *reporting.ForecastService
	includePending bool
}

// NewForecastHandler creates a new forecast handler. includePending is the
// default when the request does not say.
func NewForecastHandler(svc *reporting.ForecastService, includePending bool, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{Base: NewBase(logger), svc: svc, includePending: includePending}
}

func (h *ForecastHandler) report(c *gin.Context) (*forecast.Report, bool) {
	report, err := h.svc.GenerateReport(c.Request.Context(), c.Param("projectId"),
		ParseBoolParam(c, "include_pending", h.includePending))
	if err != nil {
		h.WriteError(c, err)
		return nil, false
	}
	return report, true
}

// Get handles GET /api/reporting/contract-forecasting/:projectId.
func (h *ForecastHandler) Get(c *gin.Context) {
	if report, ok := h.report(c); ok {
		h.WriteJSON(c, http.StatusOK, report)
	}
}

// Verify handles GET /api/reporting/contract-forecasting/:projectId/verify.
func (h *ForecastHandler) Verify(c *gin.Context) {
	v, err := h.svc.Verify(c.Request.Context(), c.Param("projectId"),
		ParseBoolParam(c, "include_pending", h.includePending))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, v)
}

// ExportCSV handles GET /api/reporting/contract-forecasting/:projectId/export.csv.
func (h *ForecastHandler) ExportCSV(c *gin.Context) {
	h.export(c, "csv", "text/csv; charset=utf-8", export.WriteCSV)
}

// ExportXLSX handles GET /api/reporting/contract-forecasting/:projectId/export.xlsx.
func (h *ForecastHandler) ExportXLSX(c *gin.Context) {
	h.export(c, "xlsx", xlsxContentType, export.WriteXLSX)
}

// export renders into a buffer first so a write failure can still become
// a 500.
func (h *ForecastHandler) export(c *gin.Context, ext, contentType string, write func(io.Writer, *forecast.Report) error) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, report); err != nil {
		h.WriteError(c, fmt.Errorf("render %s: %w", ext, err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="forecast-%s.%s"`, report.ProjectID, ext))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// CreateEstimate handles POST /api/contract-estimates.
func (h *ForecastHandler) CreateEstimate(c *gin.Context) {
	var req dto.CreateEstimateRequest
	if !h.Bind(c, &req) {
		return
	}
	est, err := h.svc.CreateEstimate(c.Request.Context(), &procurement.ContractEstimate{
		ProjectID:    req.ProjectID,
		CostCode:     req.CostCode,
		Description:  req.Description,
		AwardedValue: req.AwardedValue,
	})
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, est)
}

// CreateMaterial handles POST /api/materials.
func (h *ForecastHandler) CreateMaterial(c *gin.Context) {
	var req dto.CreateMaterialRequest
	if !h.Bind(c, &req) {
		return
	}
	m, err := h.svc.CreateMaterial(c.Request.Context(), &procurement.Material{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		CostCode:  req.CostCode,
	})
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, m)
}
