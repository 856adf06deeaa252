package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/netcollect/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_EnsurePeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.SeedCustomer(t, f.db, "001", "Andi", 150000)
	testutil.SeedCustomer(t, f.db, "002", "Budi", 200000)
	testutil.SeedCustomer(t, f.db, "003", "Citra", 100000)
	testutil.SetCustomerActive(t, f.db, "003", false)

	created, err := f.ledger.EnsurePeriod(ctx, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	t.Run("second call is a no-op", func(t *testing.T) {
		created, err := f.ledger.EnsurePeriod(ctx, testPeriod)
		require.NoError(t, err)
		assert.Zero(t, created)
	})

	t.Run("existing amounts stay frozen after a fee change", func(t *testing.T) {
		testutil.SetCustomerFee(t, f.db, "001", 175000)
		_, err := f.ledger.EnsurePeriod(ctx, testPeriod)
		require.NoError(t, err)
		assert.Equal(t, int64(150000), f.invoice(t, "001").Amount)

		created, err := f.ledger.EnsurePeriod(ctx, "2025-07")
		require.NoError(t, err)
		assert.Equal(t, int64(2), created)
		assert.Equal(t, int64(175000), testutil.LoadInvoice(t, f.db, "2025-07", "001").Amount)
	})

	t.Run("inactive customers get no invoice", func(t *testing.T) {
		lines, err := f.reports.Unpaid(ctx, testPeriod, "")
		require.NoError(t, err)
		for _, l := range lines {
			assert.NotEqual(t, "003", l.CustomerID)
		}
	})

	t.Run("rejects malformed period", func(t *testing.T) {
		_, err := f.ledger.EnsurePeriod(ctx, "2025-6")
		assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
	})

	t.Run("records one audit entry per materialization", func(t *testing.T) {
		entries, err := f.reports.AuditTrail(ctx, billing.AuditFilter{AggregateType: billing.AggregateTypePeriod})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, []string{
			billing.EventTypeInvoicesMaterialized,
			billing.EventTypeInvoicesMaterialized,
		}, f.events.types())
	})
}

func TestLedgerService_EnsurePeriod_Concurrent(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"001", "002", "003"} {
		testutil.SeedCustomer(t, f.db, id, "Pelanggan "+id, 150000)
	}

	var wg sync.WaitGroup
	totals := make([]int64, 6)
	for i := range totals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := f.ledger.EnsurePeriod(context.Background(), testPeriod)
			assert.NoError(t, err)
			totals[i] = created
		}(i)
	}
	wg.Wait()

	var sum int64
	for _, n := range totals {
		sum += n
	}
	assert.Equal(t, int64(3), sum)

	lines, err := f.reports.Unpaid(context.Background(), testPeriod, "")
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestLedgerService_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("cash stays unverified and unlocked", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")

		inv := f.pay(t, "001", billing.PaymentMethodCash, "Ali")
		assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)

		stored := f.invoice(t, "001")
		assert.Equal(t, billing.InvoiceStatusPaid, stored.Status)
		assert.Equal(t, billing.PaymentMethodCash, stored.Method)
		assert.Equal(t, "Ali", stored.Collector)
		assert.False(t, stored.CashVerified)
		assert.False(t, stored.Locked)
		assert.Nil(t, stored.CashBatchID)
		require.NotNil(t, stored.PaidAt)
		assert.True(t, stored.PaidAt.Equal(onDay(9, 0)))
		assert.NoError(t, stored.CheckShape())
	})

	t.Run("transfer is verified immediately", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")

		f.pay(t, "001", billing.PaymentMethodTransfer, "Ali")
		stored := f.invoice(t, "001")
		assert.True(t, stored.CashVerified)
		assert.False(t, stored.Locked)
		assert.Nil(t, stored.CashBatchID)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		f.pay(t, "001", billing.PaymentMethodCash, "Ali")

		_, err := f.ledger.Pay(ctx, PayCommand{Period: testPeriod, CustomerID: "001", Method: billing.PaymentMethodCash, Collector: "Budi"})
		assert.ErrorIs(t, err, billing.ErrInvoiceAlreadyPaid)
		assert.True(t, shared.IsPrecondition(err))
		assert.Equal(t, "Ali", f.invoice(t, "001").Collector)
	})

	t.Run("missing invoice", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")

		_, err := f.ledger.Pay(ctx, PayCommand{Period: testPeriod, CustomerID: "999", Method: billing.PaymentMethodCash, Collector: "Ali"})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("validation happens before storage", func(t *testing.T) {
		f := newFixture(t)
		tests := []struct {
			name string
			cmd  PayCommand
			want error
		}{
			{"period", PayCommand{Period: "06-2025", CustomerID: "001", Method: billing.PaymentMethodCash, Collector: "Ali"}, billing.ErrInvalidPeriod},
			{"customer", PayCommand{Period: testPeriod, CustomerID: " ", Method: billing.PaymentMethodCash, Collector: "Ali"}, billing.ErrCustomerRequired},
			{"method", PayCommand{Period: testPeriod, CustomerID: "001", Method: "GIRO", Collector: "Ali"}, billing.ErrInvalidMethod},
			{"collector", PayCommand{Period: testPeriod, CustomerID: "001", Method: billing.PaymentMethodCash}, billing.ErrCollectorRequired},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.ledger.Pay(ctx, tt.cmd)
				assert.ErrorIs(t, err, tt.want)
				assert.True(t, shared.IsValidation(err))
			})
		}
	})

	t.Run("closed day blocks the collector only", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001", "002", "003")
		f.pay(t, "001", billing.PaymentMethodCash, "Ali")
		res := f.submit(t, "Ali")
		_, err := f.batches.Approve(ctx, res.Batch.ID, testPeriod, "Admin")
		require.NoError(t, err)

		_, err = f.ledger.Pay(ctx, PayCommand{Period: testPeriod, CustomerID: "002", Method: billing.PaymentMethodCash, Collector: "Ali"})
		assert.ErrorIs(t, err, billing.ErrDayClosed)
		assert.Equal(t, billing.InvoiceStatusUnpaid, f.invoice(t, "002").Status)

		f.pay(t, "003", billing.PaymentMethodCash, "Budi")

		// the next day is open again
		f.clock.Set(onDay(9, 0).Add(24 * time.Hour))
		f.pay(t, "002", billing.PaymentMethodCash, "Ali")
	})

	t.Run("publishes after commit", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		f.pay(t, "001", billing.PaymentMethodTransfer, "Ali")

		assert.Equal(t, []string{billing.EventTypeInvoicesMaterialized, billing.EventTypeInvoicePaid}, f.events.types())

		entries, err := f.reports.AuditTrail(ctx, billing.AuditFilter{AggregateType: billing.AggregateTypeInvoice})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Ali", entries[0].Actor)
		assert.Equal(t, testPeriod, entries[0].Period)
		assert.Contains(t, entries[0].Payload, `"method":"TRANSFER"`)
	})
}

func TestLedgerService_Pay_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 150000, "001")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Pay(context.Background(), PayCommand{
				Period:     testPeriod,
				CustomerID: "001",
				Method:     billing.PaymentMethodCash,
				Collector:  "Ali",
			})
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
			continue
		}
		assert.True(t, shared.IsPrecondition(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, applied)

	entries, err := f.reports.AuditTrail(context.Background(), billing.AuditFilter{AggregateType: billing.AggregateTypeInvoice})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedgerService_Undo(t *testing.T) {
	ctx := context.Background()

	t.Run("same-day transfer", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		paid := f.pay(t, "001", billing.PaymentMethodTransfer, "Ali")

		f.clock.Set(onDay(23, 59))
		inv, err := f.ledger.Undo(ctx, paid.ID, testPeriod)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusUnpaid, inv.Status)

		stored := f.invoice(t, "001")
		assert.Equal(t, billing.InvoiceStatusUnpaid, stored.Status)
		assert.Empty(t, stored.Method)
		assert.Nil(t, stored.PaidAt)
		assert.Empty(t, stored.Collector)
		assert.False(t, stored.CashVerified)
		assert.False(t, stored.Locked)
		assert.NoError(t, stored.CheckShape())

		// paying again works after the reset
		f.pay(t, "001", billing.PaymentMethodCash, "Budi")
	})

	t.Run("same-day unbatched cash", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		paid := f.pay(t, "001", billing.PaymentMethodCash, "Ali")

		_, err := f.ledger.Undo(ctx, paid.ID, testPeriod)
		require.NoError(t, err)
		assert.Contains(t, f.events.types(), billing.EventTypePaymentUndone)
	})

	t.Run("window closes at local midnight", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		paid := f.pay(t, "001", billing.PaymentMethodTransfer, "Ali")

		f.clock.Set(time.Date(2025, 6, 16, 0, 0, 1, 0, testutil.Jakarta))
		_, err := f.ledger.Undo(ctx, paid.ID, testPeriod)
		assert.ErrorIs(t, err, billing.ErrUndoWindowClosed)
		assert.Equal(t, billing.InvoiceStatusPaid, f.invoice(t, "001").Status)
	})

	t.Run("batched cash is never undone", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		paid := f.pay(t, "001", billing.PaymentMethodCash, "Ali")
		f.submit(t, "Ali")

		_, err := f.ledger.Undo(ctx, paid.ID, testPeriod)
		assert.True(t, shared.IsPrecondition(err))
		assert.Equal(t, billing.InvoiceStatusPaid, f.invoice(t, "001").Status)
	})

	t.Run("transfer locked by a submission", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001", "002")
		f.pay(t, "001", billing.PaymentMethodCash, "Ali")
		transfer := f.pay(t, "002", billing.PaymentMethodTransfer, "Ali")
		f.submit(t, "Ali")

		_, err := f.ledger.Undo(ctx, transfer.ID, testPeriod)
		assert.ErrorIs(t, err, billing.ErrInvoiceLocked)
	})

	t.Run("unpaid invoice", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		_, err := f.ledger.Undo(ctx, f.invoice(t, "001").ID, testPeriod)
		assert.ErrorIs(t, err, billing.ErrInvoiceNotPaid)
	})

	t.Run("wrong period reads as not found", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, 150000, "001")
		paid := f.pay(t, "001", billing.PaymentMethodCash, "Ali")

		_, err := f.ledger.Undo(ctx, paid.ID, "2025-07")
		assert.ErrorIs(t, err, billing.ErrInvoiceNotFound)
		assert.Equal(t, billing.InvoiceStatusPaid, f.invoice(t, "001").Status)
	})

	t.Run("invalid id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Undo(ctx, 0, testPeriod)
		assert.ErrorIs(t, err, billing.ErrInvalidInvoiceID)
	})
}

func TestLedgerService_Receipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 150000, "001")
	paid := f.pay(t, "001", billing.PaymentMethodCash, "Ali")

	receipt, err := f.ledger.Receipt(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, "001", receipt.Customer.ID)
	assert.Equal(t, "Pelanggan 001", receipt.Customer.Name)
	assert.Equal(t, int64(150000), receipt.Invoice.Amount)
	assert.Equal(t, "Ali", receipt.Invoice.Collector)

	_, err = f.ledger.Receipt(ctx, paid.ID+100)
	assert.True(t, shared.IsNotFound(err))

	_, err = f.ledger.Receipt(ctx, -1)
	assert.ErrorIs(t, err, billing.ErrInvalidInvoiceID)
}
