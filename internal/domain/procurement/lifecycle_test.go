package procurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionInvoice(t *testing.T) {
	tests := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{InvoiceStatusPending, InvoiceStatusApproved, true},
		{InvoiceStatusPending, InvoiceStatusException, true},
		{InvoiceStatusPending, InvoiceStatusPending, true},
		{InvoiceStatusException, InvoiceStatusApproved, true},
		{InvoiceStatusException, InvoiceStatusException, true},
		{InvoiceStatusApproved, InvoiceStatusPaid, true},
		{InvoiceStatusPending, InvoiceStatusPaid, false},
		{InvoiceStatusApproved, InvoiceStatusException, false},
		{InvoiceStatusPaid, InvoiceStatusApproved, false},
		{"", InvoiceStatusApproved, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			inv := &Invoice{ID: "inv-1", Status: tt.from}
			err := TransitionInvoice(inv, tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, inv.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, inv.Status, "status must not change on rejected transition")
			}
		})
	}
}

func TestCanRematch(t *testing.T) {
	assert.True(t, CanRematch(&Invoice{Status: InvoiceStatusPending}))
	assert.True(t, CanRematch(&Invoice{Status: InvoiceStatusException}))
	assert.False(t, CanRematch(&Invoice{Status: InvoiceStatusApproved}))
	assert.False(t, CanRematch(&Invoice{Status: InvoiceStatusPaid}))
}

func TestTransitionPurchaseOrder(t *testing.T) {
	po := &PurchaseOrder{ID: "po-1", Status: POStatusDraft}

	require.NoError(t, TransitionPurchaseOrder(po, POStatusSent))
	require.NoError(t, TransitionPurchaseOrder(po, POStatusAcknowledged))
	require.NoError(t, TransitionPurchaseOrder(po, POStatusReceived))

	err := TransitionPurchaseOrder(po, POStatusSent)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, TransitionPurchaseOrder(po, POStatusClosed))
	assert.ErrorIs(t, TransitionPurchaseOrder(po, POStatusDraft), ErrInvalidTransition)
}

func TestPOStatus_IsCommitted(t *testing.T) {
	assert.False(t, POStatusDraft.IsCommitted())
	assert.True(t, POStatusSent.IsCommitted())
	assert.True(t, POStatusAcknowledged.IsCommitted())
	assert.True(t, POStatusReceived.IsCommitted())
	assert.False(t, POStatusClosed.IsCommitted())
}
