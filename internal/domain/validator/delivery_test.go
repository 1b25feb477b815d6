package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

func testPO() *procurement.PurchaseOrder {
	return &procurement.PurchaseOrder{
		ID: "po-1",
		Lines: []procurement.PurchaseOrderLine{
			{ID: "l1", Description: "2x4 stud 8ft", Quantity: money.Must("100"), UnitPrice: money.Must("4.25"), LineTotal: money.Must("425")},
			{ID: "l2", Description: "Drywall sheet", Quantity: money.Must("50"), UnitPrice: money.Must("11.50"), LineTotal: money.Must("575")},
		},
	}
}

func TestDeliveredValue_SumsAcrossDeliveries(t *testing.T) {
	deliveries := []procurement.Delivery{
		{ID: "d1", Lines: []procurement.DeliveryLine{
			{PurchaseOrderLineID: "l1", QuantityReceived: money.Must("60")},
		}},
		{ID: "d2", Lines: []procurement.DeliveryLine{
			{PurchaseOrderLineID: "l1", QuantityReceived: money.Must("40")},
			{PurchaseOrderLineID: "l2", QuantityReceived: money.Must("50")},
			{PurchaseOrderLineID: "unknown", QuantityReceived: money.Must("10")},
		}},
	}

	value, priced := DeliveredValue(testPO(), deliveries)

	assert.True(t, value.Equal(money.Must("1000.00")), "got %s", value)
	assert.Equal(t, 3, priced)
}

func TestValidateDeliveredValue_WithinThreshold(t *testing.T) {
	deliveries := []procurement.Delivery{{Lines: []procurement.DeliveryLine{
		{PurchaseOrderLineID: "l1", QuantityReceived: money.Must("100")},
		{PurchaseOrderLineID: "l2", QuantityReceived: money.Must("50")},
	}}}

	result := ValidateDeliveredValue(testPO(), deliveries, money.Must("1050.00"), money.Must("5"))

	assert.True(t, result.Valid)
	assert.True(t, result.Difference.Equal(money.Must("50.00")))
	assert.Empty(t, result.Reason)
}

func TestValidateDeliveredValue_ShortDelivery(t *testing.T) {
	deliveries := []procurement.Delivery{{Lines: []procurement.DeliveryLine{
		{PurchaseOrderLineID: "l1", QuantityReceived: money.Must("100")},
	}}}

	result := ValidateDeliveredValue(testPO(), deliveries, money.Must("1000.00"), money.Must("5"))

	assert.False(t, result.Valid)
	assert.True(t, result.DeliveredValue.Equal(money.Must("425.00")))
	assert.True(t, result.VariancePercent.Equal(money.Must("57.5")), "got %s", result.VariancePercent)
	assert.Contains(t, result.Reason, "exceeds received value")
}

func TestValidateDeliveredValue_OverDelivery(t *testing.T) {
	deliveries := []procurement.Delivery{{Lines: []procurement.DeliveryLine{
		{PurchaseOrderLineID: "l1", QuantityReceived: money.Must("100")},
		{PurchaseOrderLineID: "l2", QuantityReceived: money.Must("50")},
	}}}

	result := ValidateDeliveredValue(testPO(), deliveries, money.Must("500.00"), money.Must("5"))

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "possible partial invoice")
}

func TestValidateDeliveredValue_ZeroInvoiceTotal(t *testing.T) {
	result := ValidateDeliveredValue(testPO(), nil, money.Must("0"), money.Must("5"))

	assert.True(t, result.Valid)
	assert.True(t, result.VariancePercent.IsZero())
}
