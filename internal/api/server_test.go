package api_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/sitebuy-backend/internal/api"
	"github.com/eshaffer321/sitebuy-backend/internal/api/dto"
	"github.com/eshaffer321/sitebuy-backend/internal/application/invoicing"
	"github.com/eshaffer321/sitebuy-backend/internal/application/purchasing"
	"github.com/eshaffer321/sitebuy-backend/internal/application/reporting"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServices(repo storage.Repository) api.Services {
	logger := quietLogger()
	return api.Services{
		Invoicing:  invoicing.NewService(repo, nil, logger, invoicing.Options{}),
		Purchasing: purchasing.NewService(repo, logger, nil),
		Forecast:   reporting.NewForecastService(repo, nil, logger),
	}
}

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	cfg := api.DefaultConfig()
	cfg.RequestsPerSecond = 0
	return api.NewServer(cfg, newServices(repo), quietLogger()), repo
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func seedPO(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	require.NoError(t, repo.SavePurchaseOrder(t.Context(), &procurement.PurchaseOrder{
		ID: "po-1", OrganizationID: "org-1", ProjectID: "proj-1", Number: "PO-1",
		Status: procurement.POStatusSent, TotalAmount: money.Must("1071.00"),
	}))
}

func invoiceBody(total string) map[string]any {
	return map[string]any{
		"organization_id":   "org-1",
		"project_id":        "proj-1",
		"number":            "INV-7",
		"uploaded_by":       "ap@example.com",
		"purchase_order_id": "po-1",
		"total_amount":      total,
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Router(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	response := decode[dto.HealthResponse](t, rec)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_InvoiceEndpoints(t *testing.T) {
	t.Run("POST /api/invoices matches and returns 201", func(t *testing.T) {
		server, repo := newTestServer(t)
		seedPO(t, repo)

		rec := do(t, server.Router(), http.MethodPost, "/api/invoices", invoiceBody("1071.00"))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		outcome := decode[invoicing.Outcome](t, rec)
		assert.Equal(t, procurement.InvoiceStatusApproved, outcome.Invoice.Status)
		require.NotNil(t, outcome.Result)
		assert.True(t, outcome.Result.Matched)
	})

	t.Run("POST /api/invoices rejects missing fields", func(t *testing.T) {
		server, _ := newTestServer(t)
		body := invoiceBody("10")
		delete(body, "project_id")

		rec := do(t, server.Router(), http.MethodPost, "/api/invoices", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decode[dto.APIError](t, rec).Code)
	})

	t.Run("GET /api/invoices/:id returns 404 for unknown invoice", func(t *testing.T) {
		server, _ := newTestServer(t)

		rec := do(t, server.Router(), http.MethodGet, "/api/invoices/nope", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decode[dto.APIError](t, rec).Code)
	})

	t.Run("exception invoice cannot be paid until manually matched", func(t *testing.T) {
		server, repo := newTestServer(t)
		seedPO(t, repo)

		rec := do(t, server.Router(), http.MethodPost, "/api/invoices", invoiceBody("1500.00"))
		require.Equal(t, http.StatusCreated, rec.Code)
		outcome := decode[invoicing.Outcome](t, rec)
		require.Equal(t, procurement.InvoiceStatusException, outcome.Invoice.Status)
		id := outcome.Invoice.ID

		rec = do(t, server.Router(), http.MethodPost, "/api/invoices/"+id+"/pay", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, dto.ErrCodeConflict, decode[dto.APIError](t, rec).Code)

		rec = do(t, server.Router(), http.MethodPost, "/api/invoices/"+id+"/manual-match", map[string]string{"note": "approved by PM"})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "matched_by is required")

		rec = do(t, server.Router(), http.MethodPost, "/api/invoices/"+id+"/manual-match",
			map[string]string{"matched_by": "pm@example.com", "note": "approved by PM"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, procurement.InvoiceStatusApproved, decode[invoicing.Outcome](t, rec).Invoice.Status)

		rec = do(t, server.Router(), http.MethodPost, "/api/invoices/"+id+"/pay", map[string]string{"by": "controller@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, procurement.InvoiceStatusPaid, decode[procurement.Invoice](t, rec).Status)

		rec = do(t, server.Router(), http.MethodGet, "/api/invoices/"+id+"/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		history := decode[dto.InvoiceHistoryResponse](t, rec)
		assert.Len(t, history.Events, 4)
	})

	t.Run("POST /api/invoices/:id/match re-runs the engine", func(t *testing.T) {
		server, repo := newTestServer(t)
		body := invoiceBody("1071.00")

		rec := do(t, server.Router(), http.MethodPost, "/api/invoices", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		id := decode[invoicing.Outcome](t, rec).Invoice.ID

		seedPO(t, repo)
		rec = do(t, server.Router(), http.MethodPost, "/api/invoices/"+id+"/match", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, procurement.InvoiceStatusApproved, decode[invoicing.Outcome](t, rec).Invoice.Status)
	})
}

func TestServer_ToleranceEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Router(), http.MethodGet, "/api/organizations/org-1/tolerances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, money.Must("2").Equal(decode[dto.ToleranceResponse](t, rec).Tolerance.PricePercentage))

	rec = do(t, server.Router(), http.MethodPut, "/api/organizations/org-1/tolerances", map[string]string{"price_percentage": "5"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, server.Router(), http.MethodGet, "/api/organizations/org-1/tolerances", nil)
	tol := decode[dto.ToleranceResponse](t, rec).Tolerance
	assert.True(t, money.Must("5").Equal(tol.PricePercentage))
	assert.True(t, money.Must("50").Equal(tol.TaxFreightCap), "omitted fields keep their value")

	rec = do(t, server.Router(), http.MethodPut, "/api/organizations/org-1/tolerances", map[string]string{"tax_freight_cap": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode[dto.APIError](t, rec).Code)
}

func TestServer_PurchasingEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Router(), http.MethodPost, "/api/purchase-orders", map[string]any{
		"organization_id": "org-1",
		"project_id":      "proj-1",
		"number":          "PO-9",
		"lines": []map[string]any{
			{"description": "Rebar #5", "quantity": "10", "unit_price": "12.50", "cost_code": "03-200"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	po := decode[procurement.PurchaseOrder](t, rec)
	assert.Equal(t, procurement.POStatusDraft, po.Status)
	assert.True(t, money.Must("125").Equal(po.TotalAmount))

	rec = do(t, server.Router(), http.MethodPost, "/api/purchase-orders/"+po.ID+"/status", map[string]string{"status": "received"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, server.Router(), http.MethodPost, "/api/purchase-orders/"+po.ID+"/status", map[string]string{"status": "sent"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, server.Router(), http.MethodPost, "/api/deliveries", map[string]any{
		"purchase_order_id": po.ID,
		"lines":             []map[string]any{{"purchase_order_line_id": po.Lines[0].ID, "quantity_received": "10"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, procurement.DeliveryStatusComplete, decode[procurement.Delivery](t, rec).Status)

	rec = do(t, server.Router(), http.MethodGet, "/api/purchase-orders/"+po.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, procurement.POStatusReceived, decode[procurement.PurchaseOrder](t, rec).Status)

	rec = do(t, server.Router(), http.MethodPost, "/api/deliveries", map[string]any{"purchase_order_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ForecastEndpoints(t *testing.T) {
	server, repo := newTestServer(t)
	require.NoError(t, repo.SaveContractEstimate(t.Context(), &procurement.ContractEstimate{
		ID: "est-1", ProjectID: "proj-1", CostCode: "03-300", Description: "Concrete", AwardedValue: money.Must("10000"),
	}))

	rec := do(t, server.Router(), http.MethodPost, "/api/contract-estimates", map[string]any{
		"project_id": "proj-1", "cost_code": "09-200", "description": "Drywall", "awarded_value": "5000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, server.Router(), http.MethodGet, "/api/reporting/contract-forecasting/proj-1?include_pending=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[forecast.Report](t, rec)
	assert.True(t, report.IncludePending)
	require.Len(t, report.Lines, 2)
	assert.Equal(t, "03-300", report.Lines[0].CostCode)
	assert.True(t, money.Must("17250").Equal(report.Totals.CurrentRevenueBudget))

	rec = do(t, server.Router(), http.MethodGet, "/api/reporting/contract-forecasting/proj-1/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[reporting.Verification](t, rec).OK)

	rec = do(t, server.Router(), http.MethodGet, "/api/reporting/contract-forecasting/proj-1/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "forecast-proj-1.csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4, "header, two cost codes, totals")
	assert.Equal(t, forecast.CostCodeHeader, records[0][0])

	rec = do(t, server.Router(), http.MethodGet, "/api/reporting/contract-forecasting/proj-1/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())
}

func TestServer_RateLimit(t *testing.T) {
	cfg := api.DefaultConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	server := api.NewServer(cfg, newServices(storage.NewMockRepository()), quietLogger())

	assert.Equal(t, http.StatusOK, do(t, server.Router(), http.MethodGet, "/health", nil).Code)
	rec := do(t, server.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decode[dto.APIError](t, rec).Code)
}
