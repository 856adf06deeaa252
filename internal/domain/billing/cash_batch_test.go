package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCashBatch(t *testing.T) {
	at := time.Date(2025, 6, 15, 18, 0, 0, 0, jakarta)

	t.Run("creates pending batch", func(t *testing.T) {
		b, err := NewCashBatch("2025-06", "2025-06-15", "Ali", CashTally{Count: 2, Total: 300000}, at)
		require.NoError(t, err)
		assert.Equal(t, BatchStatusPending, b.Status)
		assert.Equal(t, int64(2), b.Count)
		assert.Equal(t, int64(300000), b.TotalCash)
		assert.NoError(t, b.CanAcceptInvoices())
	})

	t.Run("nothing to submit", func(t *testing.T) {
		_, err := NewCashBatch("2025-06", "2025-06-15", "Ali", CashTally{}, at)
		assert.ErrorIs(t, err, ErrNothingToSubmit)
	})

	t.Run("requires collector", func(t *testing.T) {
		_, err := NewCashBatch("2025-06", "2025-06-15", "", CashTally{Count: 1}, at)
		assert.ErrorIs(t, err, ErrCollectorRequired)
	})
}

func TestCashBatch_Approve(t *testing.T) {
	at := time.Date(2025, 6, 15, 18, 0, 0, 0, jakarta)
	b, err := NewCashBatch("2025-06", "2025-06-15", "Ali", CashTally{Count: 1, Total: 150000}, at)
	require.NoError(t, err)

	assert.ErrorIs(t, b.Approve(" ", at), ErrAdminRequired)

	require.NoError(t, b.Approve("Admin", at.Add(time.Hour)))
	assert.True(t, b.IsApproved())
	assert.Equal(t, "Admin", b.ApprovedBy)
	require.NotNil(t, b.ApprovedAt)

	assert.ErrorIs(t, b.Approve("Admin", at), ErrBatchNotPending)
	assert.ErrorIs(t, b.CanAcceptInvoices(), ErrBatchNotPending)
}

func TestSubmitRequest_Validate(t *testing.T) {
	ok := SubmitRequest{Period: "2025-06", Collector: "Ali", BatchDate: "2025-06-15"}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Period = "2025-6"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPeriod)

	bad = ok
	bad.BatchDate = "yesterday"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidDay)

	bad = ok
	bad.Collector = ""
	assert.ErrorIs(t, bad.Validate(), ErrCollectorRequired)
}

func TestNewDateDetail(t *testing.T) {
	lines := []DateLine{
		{InvoiceID: 1, Method: PaymentMethodTransfer, Amount: 100000},
		{InvoiceID: 2, Method: PaymentMethodCash, Amount: 150000},
		{InvoiceID: 3, Method: PaymentMethodCash, Amount: 150000},
	}
	d := NewDateDetail("2025-06", "2025-06-15", lines)

	assert.Equal(t, CashTally{Count: 2, Total: 300000}, d.Cash)
	assert.Equal(t, CashTally{Count: 1, Total: 100000}, d.Transfer)
	assert.Equal(t, CashTally{Count: 3, Total: 400000}, d.Total)
}

func TestNormalizeRoster(t *testing.T) {
	got := NormalizeRoster([]string{" budi", "ali", "", "budi", "  "})
	assert.Equal(t, []string{"ali", "budi"}, got)
}

func TestCustomer_NewInvoice(t *testing.T) {
	c, err := NewCustomer("001", "Pelanggan 001", "", 150000)
	require.NoError(t, err)

	inv := c.NewInvoice("2025-06", time.Now())
	assert.Equal(t, int64(150000), inv.Amount)
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
	assert.NoError(t, inv.CheckShape())

	_, err = NewCustomer("002", "x", "", -1)
	assert.ErrorIs(t, err, ErrNegativeFee)
}
