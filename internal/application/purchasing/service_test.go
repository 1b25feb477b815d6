package purchasing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

var fixedNow = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

func newTestService() (*Service, *storage.MockRepository) {
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger, func() time.Time { return fixedNow }), repo
}

func lumberPO() *procurement.PurchaseOrder {
	return &procurement.PurchaseOrder{
		OrganizationID: "org-1",
		ProjectID:      "proj-1",
		Number:         "PO-1001",
		TaxAmount:      money.Must("71.00"),
		Lines: []procurement.PurchaseOrderLine{
			{Description: "2x4 stud", Quantity: money.Must("100"), UnitPrice: money.Must("5.00"), CostCode: "06-100"},
			{Description: "OSB sheet", Quantity: money.Must("20"), UnitPrice: money.Must("25.00"), CostCode: "06-100"},
		},
	}
}

func TestCreatePurchaseOrder_DerivesTotals(t *testing.T) {
	svc, repo := newTestService()

	po, err := svc.CreatePurchaseOrder(context.Background(), lumberPO())
	require.NoError(t, err)

	assert.NotEmpty(t, po.ID)
	assert.Equal(t, procurement.POStatusDraft, po.Status)
	assert.True(t, money.Must("500").Equal(po.Lines[0].LineTotal))
	assert.True(t, money.Must("1000").Equal(po.Subtotal))
	assert.True(t, money.Must("1071").Equal(po.TotalAmount))
	assert.Equal(t, fixedNow, po.CreatedAt)
	for _, l := range po.Lines {
		assert.NotEmpty(t, l.ID)
	}

	stored, err := repo.GetPurchaseOrder(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
}

func TestCreatePurchaseOrder_KeepsExplicitTotal(t *testing.T) {
	svc, _ := newTestService()
	po := lumberPO()
	po.Lines = nil
	po.TotalAmount = money.Must("25000")

	created, err := svc.CreatePurchaseOrder(context.Background(), po)
	require.NoError(t, err)
	assert.True(t, money.Must("25000").Equal(created.TotalAmount))
}

func TestCreatePurchaseOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*procurement.PurchaseOrder)
	}{
		{"no organization", func(po *procurement.PurchaseOrder) { po.OrganizationID = "" }},
		{"no project", func(po *procurement.PurchaseOrder) { po.ProjectID = "" }},
		{"no number", func(po *procurement.PurchaseOrder) { po.Number = "" }},
		{"unknown status", func(po *procurement.PurchaseOrder) { po.Status = "shipped" }},
		{"negative quantity", func(po *procurement.PurchaseOrder) { po.Lines[0].Quantity = money.Must("-1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			po := lumberPO()
			tt.mutate(po)
			_, err := svc.CreatePurchaseOrder(context.Background(), po)
			assert.ErrorIs(t, err, procurement.ErrValidation)
		})
	}
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	po, err := svc.CreatePurchaseOrder(ctx, lumberPO())
	require.NoError(t, err)

	_, err = svc.TransitionStatus(ctx, po.ID, procurement.POStatusReceived)
	assert.ErrorIs(t, err, procurement.ErrInvalidTransition, "draft cannot skip to received")

	sent, err := svc.TransitionStatus(ctx, po.ID, procurement.POStatusSent)
	require.NoError(t, err)
	assert.Equal(t, procurement.POStatusSent, sent.Status)

	_, err = svc.TransitionStatus(ctx, po.ID, "bogus")
	assert.ErrorIs(t, err, procurement.ErrValidation)

	_, err = svc.TransitionStatus(ctx, "missing", procurement.POStatusSent)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordDelivery_CompleteMarksReceived(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()
	po := lumberPO()
	po.Status = procurement.POStatusSent
	po, err := svc.CreatePurchaseOrder(ctx, po)
	require.NoError(t, err)

	d, err := svc.RecordDelivery(ctx, &procurement.Delivery{
		PurchaseOrderID: po.ID,
		Lines: []procurement.DeliveryLine{
			{PurchaseOrderLineID: po.Lines[0].ID, QuantityReceived: money.Must("100")},
			{PurchaseOrderLineID: po.Lines[1].ID, QuantityReceived: money.Must("20")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, procurement.DeliveryStatusComplete, d.Status)
	assert.True(t, money.Must("100").Equal(d.Lines[0].QuantityOrdered))
	assert.Equal(t, fixedNow, d.ReceivedAt)

	stored, err := repo.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.POStatusReceived, stored.Status)

	deliveries, err := repo.ListDeliveriesByPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Len(t, deliveries, 1)
}

func TestRecordDelivery_PartialLeavesPOOpen(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()
	po := lumberPO()
	po.Status = procurement.POStatusAcknowledged
	po, err := svc.CreatePurchaseOrder(ctx, po)
	require.NoError(t, err)

	d, err := svc.RecordDelivery(ctx, &procurement.Delivery{
		PurchaseOrderID: po.ID,
		Lines: []procurement.DeliveryLine{
			{PurchaseOrderLineID: po.Lines[0].ID, QuantityReceived: money.Must("60")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, procurement.DeliveryStatusPartial, d.Status)

	stored, err := repo.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.POStatusAcknowledged, stored.Status)
}

func TestRecordDelivery_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	po, err := svc.CreatePurchaseOrder(ctx, lumberPO())
	require.NoError(t, err)

	_, err = svc.RecordDelivery(ctx, &procurement.Delivery{})
	assert.ErrorIs(t, err, procurement.ErrValidation)

	_, err = svc.RecordDelivery(ctx, &procurement.Delivery{PurchaseOrderID: "missing"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.RecordDelivery(ctx, &procurement.Delivery{
		PurchaseOrderID: po.ID,
		Lines:           []procurement.DeliveryLine{{PurchaseOrderLineID: "not-a-line", QuantityReceived: money.Must("1")}},
	})
	assert.ErrorIs(t, err, procurement.ErrValidation)
}
