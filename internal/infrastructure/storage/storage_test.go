package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

func createTempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sitebuy-test.db")
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(createTempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func samplePO() *procurement.PurchaseOrder {
	return &procurement.PurchaseOrder{
		ID:             "po-1",
		OrganizationID: "org-1",
		ProjectID:      "proj-1",
		VendorID:       "vendor-1",
		Number:         "PO-1001",
		Status:         procurement.POStatusSent,
		Subtotal:       money.Must("1000.00"),
		TaxAmount:      money.Must("71.00"),
		FreightAmount:  money.Must("0"),
		TotalAmount:    money.Must("1071.00"),
		Lines: []procurement.PurchaseOrderLine{
			{ID: "pol-1", SKU: "RB-4", Description: "#4 rebar", Quantity: money.Must("100"), Unit: "ea", UnitPrice: money.Must("6.50"), LineTotal: money.Must("650.00"), CostCode: "03-200"},
			{ID: "pol-2", Description: "Tie wire", Quantity: money.Must("10"), UnitPrice: money.Must("35.00"), LineTotal: money.Must("350.00"), MaterialID: "mat-1"},
		},
	}
}

func TestStorage_PurchaseOrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.SavePurchaseOrder(ctx, samplePO()))

	got, err := store.GetPurchaseOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.Equal(t, "PO-1001", got.Number)
	assert.Equal(t, procurement.POStatusSent, got.Status)
	assert.True(t, money.Must("1071").Equal(got.TotalAmount))
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "RB-4", got.Lines[0].SKU)
	assert.True(t, money.Must("6.50").Equal(got.Lines[0].UnitPrice))
	assert.Equal(t, "mat-1", got.Lines[1].MaterialID)

	// Saving again replaces lines wholesale
	po := samplePO()
	po.Status = procurement.POStatusAcknowledged
	po.Lines = po.Lines[:1]
	require.NoError(t, store.SavePurchaseOrder(ctx, po))

	got, err = store.GetPurchaseOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.Equal(t, procurement.POStatusAcknowledged, got.Status)
	assert.Len(t, got.Lines, 1)

	list, err := store.ListPurchaseOrdersByProject(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Lines, 1)
}

func TestStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	_, err := store.GetPurchaseOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetInvoice(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetTolerance(ctx, "org-none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_InvoiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	require.NoError(t, store.SavePurchaseOrder(ctx, samplePO()))

	matchedAt := time.Date(2024, 6, 3, 15, 4, 5, 0, time.UTC)
	variance := money.Must("14.0")
	tolerance := money.Must("2")
	inv := &procurement.Invoice{
		ID:              "inv-1",
		OrganizationID:  "org-1",
		ProjectID:       "proj-1",
		Number:          "INV-77",
		UploadedBy:      "ap@example.com",
		Status:          procurement.InvoiceStatusException,
		PurchaseOrderID: "po-1",
		TotalAmount:     money.Must("1221.00"),
		Lines:           []procurement.InvoiceLine{{SKU: "RB-4", Quantity: money.Must("100"), UnitPrice: money.Must("6.50"), LineTotal: money.Must("650")}},
		MatchStatus:     procurement.MatchStatusPriceVariance,
		MatchVariance:   money.Must("150.00"),
		Exceptions: []procurement.Exception{{
			Type: procurement.ExceptionPrice, Severity: procurement.SeverityError,
			Message: "over", Variance: &variance, Tolerance: &tolerance,
		}},
		MatchedAt: &matchedAt,
	}
	require.NoError(t, store.SaveInvoice(ctx, inv))

	got, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, procurement.InvoiceStatusException, got.Status)
	assert.Equal(t, procurement.MatchStatusPriceVariance, got.MatchStatus)
	assert.True(t, money.Must("150").Equal(got.MatchVariance))
	require.Len(t, got.Exceptions, 1)
	assert.Equal(t, procurement.ExceptionPrice, got.Exceptions[0].Type)
	assert.True(t, variance.Equal(*got.Exceptions[0].Variance))
	require.NotNil(t, got.MatchedAt)
	assert.True(t, matchedAt.Equal(*got.MatchedAt))
	require.Len(t, got.Lines, 1)

	pending, err := store.ListInvoicesByStatus(ctx, procurement.InvoiceStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	exceptions, err := store.ListInvoicesByStatus(ctx, procurement.InvoiceStatusException)
	require.NoError(t, err)
	assert.Len(t, exceptions, 1)

	byProject, err := store.ListInvoicesByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, byProject, 1)
}

func TestStorage_InvoiceEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	require.NoError(t, store.SaveInvoice(ctx, &procurement.Invoice{ID: "inv-1", OrganizationID: "org-1", ProjectID: "proj-1", Status: procurement.InvoiceStatusPending}))

	require.NoError(t, store.RecordInvoiceEvent(ctx, &InvoiceEvent{InvoiceID: "inv-1", ToStatus: procurement.InvoiceStatusException, Actor: "system"}))
	require.NoError(t, store.RecordInvoiceEvent(ctx, &InvoiceEvent{
		InvoiceID: "inv-1", FromStatus: procurement.InvoiceStatusException, ToStatus: procurement.InvoiceStatusApproved,
		Actor: "pm@example.com", Note: "vendor credit memo on file",
	}))

	events, err := store.ListInvoiceEvents(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, procurement.InvoiceStatusApproved, events[1].ToStatus)
	assert.Equal(t, "vendor credit memo on file", events[1].Note)

	err = store.RecordInvoiceEvent(ctx, &InvoiceEvent{InvoiceID: "ghost", ToStatus: procurement.InvoiceStatusPaid})
	assert.Error(t, err, "events must reference an existing invoice")
}

func TestStorage_DeliveriesByProject(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	require.NoError(t, store.SavePurchaseOrder(ctx, samplePO()))

	received := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDelivery(ctx, &procurement.Delivery{
		ID: "del-1", PurchaseOrderID: "po-1", Status: procurement.DeliveryStatusComplete, ReceivedAt: received,
		Lines: []procurement.DeliveryLine{{PurchaseOrderLineID: "pol-1", QuantityOrdered: money.Must("100"), QuantityReceived: money.Must("100")}},
	}))

	byPO, err := store.ListDeliveriesByPurchaseOrder(ctx, "po-1")
	require.NoError(t, err)
	require.Len(t, byPO, 1)
	assert.True(t, received.Equal(byPO[0].ReceivedAt))
	assert.True(t, money.Must("100").Equal(byPO[0].Lines[0].QuantityReceived))

	byProject, err := store.ListDeliveriesByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, byProject, 1)

	other, err := store.ListDeliveriesByProject(ctx, "proj-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStorage_ToleranceOverride(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	tol := matcher.DefaultTolerance()
	tol.PricePercentage = money.Must("0.5")
	require.NoError(t, store.SaveTolerance(ctx, "org-1", tol))

	tol.DeliveryPercentage = money.Must("3")
	require.NoError(t, store.SaveTolerance(ctx, "org-1", tol))

	got, err := store.GetTolerance(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, money.Must("0.5").Equal(got.PricePercentage))
	assert.True(t, money.Must("3").Equal(got.DeliveryPercentage))
	assert.True(t, money.Must("50").Equal(got.TaxFreightCap))
}

func TestStorage_EstimatesAndMaterials(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.SaveContractEstimate(ctx, &procurement.ContractEstimate{ID: "est-2", ProjectID: "proj-1", CostCode: "09-900", AwardedValue: money.Must("2500")}))
	require.NoError(t, store.SaveContractEstimate(ctx, &procurement.ContractEstimate{ID: "est-1", ProjectID: "proj-1", CostCode: "03-300", Description: "Concrete", AwardedValue: money.Must("10000.25")}))
	require.NoError(t, store.SaveMaterial(ctx, &procurement.Material{ID: "mat-1", ProjectID: "proj-1", Name: "Tie wire", CostCode: "03-200"}))

	estimates, err := store.ListContractEstimates(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, estimates, 2)
	assert.Equal(t, "03-300", estimates[0].CostCode)
	assert.True(t, money.Must("10000.25").Equal(estimates[0].AwardedValue))

	materials, err := store.ListMaterials(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "03-200", materials[0].CostCode)
}

func TestMockRepository_CopiesOnSave(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()

	inv := &procurement.Invoice{ID: "inv-1", Status: procurement.InvoiceStatusPending}
	require.NoError(t, repo.SaveInvoice(ctx, inv))
	inv.Status = procurement.InvoiceStatusPaid

	got, err := repo.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, procurement.InvoiceStatusPending, got.Status)
	assert.Equal(t, 1, repo.SaveInvoiceCalls)

	_, err = repo.GetInvoice(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveInvoiceIfStatus(t *testing.T) {
	repos := map[string]func(t *testing.T) Repository{
		"sqlite": func(t *testing.T) Repository { return newTestStorage(t) },
		"mock":   func(*testing.T) Repository { return NewMockRepository() },
	}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			inv := &procurement.Invoice{
				ID: "inv-1", OrganizationID: "org-1", ProjectID: "proj-1",
				Status: procurement.InvoiceStatusPending, TotalAmount: money.Must("1221.00"),
			}
			require.NoError(t, repo.SaveInvoice(ctx, inv))

			approved := *inv
			approved.Status = procurement.InvoiceStatusApproved
			approved.MatchStatus = procurement.MatchStatusMatched
			approved.MatchNote = "approved by phone"
			require.NoError(t, repo.SaveInvoiceIfStatus(ctx, &approved, procurement.InvoiceStatusPending))

			// A writer still holding the pending copy must not overwrite it.
			stale := *inv
			stale.Status = procurement.InvoiceStatusException
			stale.MatchStatus = procurement.MatchStatusPriceVariance
			err := repo.SaveInvoiceIfStatus(ctx, &stale, procurement.InvoiceStatusPending)
			assert.ErrorIs(t, err, procurement.ErrInvalidTransition)

			got, err := repo.GetInvoice(ctx, "inv-1")
			require.NoError(t, err)
			assert.Equal(t, procurement.InvoiceStatusApproved, got.Status)
			assert.Equal(t, procurement.MatchStatusMatched, got.MatchStatus)
			assert.Equal(t, "approved by phone", got.MatchNote)

			missing := &procurement.Invoice{ID: "nope", Status: procurement.InvoiceStatusPaid}
			err = repo.SaveInvoiceIfStatus(ctx, missing, procurement.InvoiceStatusApproved)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
