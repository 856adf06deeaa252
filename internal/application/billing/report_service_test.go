package billing

import (
	"context"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/netcollect/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_Unpaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.SeedCustomer(t, f.db, "001", "Andi", 150000)
	testutil.SeedCustomer(t, f.db, "002", "Budi", 150000)
	testutil.SeedCustomer(t, f.db, "010", "Sri Rahayu", 150000)

	// no ensure yet: listing materializes the period
	lines, err := f.reports.Unpaid(ctx, testPeriod, "")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "001", lines[0].CustomerID)

	f.pay(t, "001", billing.PaymentMethodCash, "Ali")

	lines, err = f.reports.Unpaid(ctx, testPeriod, "")
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	lines, err = f.reports.Unpaid(ctx, testPeriod, " rahayu ")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "010", lines[0].CustomerID)

	_, err = f.reports.Unpaid(ctx, "2025/06", "")
	assert.True(t, shared.IsValidation(err))
}

func TestReportService_CollectorDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 150000, "001", "002", "003", "004")

	f.pay(t, "001", billing.PaymentMethodCash, "Ali")
	f.clock.Set(onDay(10, 0))
	f.pay(t, "002", billing.PaymentMethodTransfer, "Ali")
	f.clock.Set(onDay(11, 0))
	f.pay(t, "003", billing.PaymentMethodCash, "Budi")

	day, err := f.reports.CollectorDay(ctx, testPeriod, "Ali")
	require.NoError(t, err)
	assert.Equal(t, testDay, day.Day)
	require.Len(t, day.Paid, 2)
	assert.Equal(t, "002", day.Paid[0].CustomerID, "newest first")
	assert.True(t, day.Paid[0].CanUndo)
	assert.True(t, day.Paid[1].CanUndo)
	assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, day.CashPending)
	assert.Nil(t, day.PendingBatch)
	assert.Nil(t, day.ApprovedBatch)
	assert.False(t, day.DayClosed)
	assert.True(t, day.TransferWindowOpen)

	res := f.submit(t, "Ali")

	day, err = f.reports.CollectorDay(ctx, testPeriod, "Ali")
	require.NoError(t, err)
	assert.Zero(t, day.CashPending.Count)
	require.NotNil(t, day.PendingBatch)
	assert.Equal(t, res.Batch.ID, day.PendingBatch.ID)
	assert.False(t, day.TransferWindowOpen)
	for _, l := range day.Paid {
		assert.False(t, l.CanUndo, l.CustomerID)
	}

	_, err = f.batches.Approve(ctx, res.Batch.ID, testPeriod, "Admin")
	require.NoError(t, err)

	day, err = f.reports.CollectorDay(ctx, testPeriod, "Ali")
	require.NoError(t, err)
	assert.Nil(t, day.PendingBatch)
	require.NotNil(t, day.ApprovedBatch)
	assert.True(t, day.DayClosed)

	t.Run("paid today and pending cash agree with the bundle", func(t *testing.T) {
		paid, err := f.reports.PaidToday(ctx, testPeriod, "Budi")
		require.NoError(t, err)
		require.Len(t, paid, 1)
		assert.Equal(t, "003", paid[0].CustomerID)

		tally, err := f.reports.CashPendingToday(ctx, testPeriod, "Budi")
		require.NoError(t, err)
		assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, tally)
	})

	t.Run("yesterday's payments are not today's", func(t *testing.T) {
		f.clock.Set(onDay(9, 0).Add(24 * time.Hour))
		paid, err := f.reports.PaidToday(ctx, testPeriod, "Budi")
		require.NoError(t, err)
		assert.Empty(t, paid)
	})

	t.Run("requires collector", func(t *testing.T) {
		_, err := f.reports.CollectorDay(ctx, testPeriod, "")
		assert.ErrorIs(t, err, billing.ErrCollectorRequired)
	})
}

func TestReportService_PeriodSummary_Cache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 150000, "001", "002")

	summary, err := f.reports.PeriodSummary(ctx, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Unpaid.Count)
	assert.Equal(t, 1, f.cache.Size())

	// direct writes bypass the bus, so the cached copy is served
	require.NoError(t, f.db.Exec("UPDATE invoices SET amount = 1 WHERE customer_id = ?", "002").Error)
	cached, err := f.reports.PeriodSummary(ctx, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), cached.Unpaid.Total)

	// a committed payment invalidates it
	f.pay(t, "001", billing.PaymentMethodTransfer, "Ali")
	fresh, err := f.reports.PeriodSummary(ctx, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, billing.CashTally{Count: 1, Total: 1}, fresh.Unpaid)
	assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, fresh.Transfer)
	assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, fresh.Paid)
}

func TestReportService_AdminViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, 150000, "001", "002", "003", "004")

	f.pay(t, "001", billing.PaymentMethodCash, "Ali")
	f.clock.Set(onDay(10, 0))
	f.pay(t, "002", billing.PaymentMethodTransfer, "Ali")
	f.pay(t, "003", billing.PaymentMethodCash, "Budi")
	ali := f.submit(t, "Ali")
	budi := f.submit(t, "Budi")
	_, err := f.batches.Approve(ctx, ali.Batch.ID, testPeriod, "Admin")
	require.NoError(t, err)

	t.Run("pending batches", func(t *testing.T) {
		pending, err := f.reports.PendingBatches(ctx, testPeriod)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, budi.Batch.ID, pending[0].ID)
	})

	t.Run("approved totals by date", func(t *testing.T) {
		totals, err := f.reports.ApprovedTotalsByDate(ctx, testPeriod)
		require.NoError(t, err)
		require.Len(t, totals, 1)
		assert.Equal(t, testDay, totals[0].BatchDate)
		assert.Equal(t, int64(1), totals[0].Batches)
		assert.Equal(t, int64(150000), totals[0].Total)
	})

	t.Run("batch detail", func(t *testing.T) {
		detail, err := f.reports.BatchDetail(ctx, testPeriod, budi.Batch.ID)
		require.NoError(t, err)
		require.Len(t, detail.Lines, 1)
		assert.Equal(t, "003", detail.Lines[0].CustomerID)

		_, err = f.reports.BatchDetail(ctx, "2025-07", budi.Batch.ID)
		assert.ErrorIs(t, err, billing.ErrBatchNotFound)
	})

	t.Run("date detail excludes unverified cash", func(t *testing.T) {
		detail, err := f.reports.DateDetail(ctx, testPeriod, testDay)
		require.NoError(t, err)
		require.Len(t, detail.Lines, 2)
		assert.Equal(t, billing.PaymentMethodTransfer, detail.Lines[0].Method)
		assert.Equal(t, "001", detail.Lines[1].CustomerID)
		assert.Equal(t, "Ali", detail.Lines[1].Collector)
		assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, detail.Cash)
		assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, detail.Transfer)
		assert.Equal(t, billing.CashTally{Count: 2, Total: 300000}, detail.Total)

		_, err = f.reports.DateDetail(ctx, testPeriod, "15-06-2025")
		assert.ErrorIs(t, err, billing.ErrInvalidDay)
	})

	t.Run("period export", func(t *testing.T) {
		export, err := f.reports.PeriodExport(ctx, testPeriod)
		require.NoError(t, err)
		assert.Equal(t, testPeriod, export.Period)
		assert.Len(t, export.Unpaid, 1)
		assert.Len(t, export.Batches, 2)
		assert.Len(t, export.ApprovedTotals, 1)
		assert.Equal(t, int64(150000), export.Summary.VerifiedCash.Total)
		assert.Equal(t, int64(150000), export.Summary.PendingCash.Total)
	})

	t.Run("audit trail by aggregate", func(t *testing.T) {
		entries, err := f.reports.AuditTrail(ctx, billing.AuditFilter{
			AggregateType: billing.AggregateTypeCashBatch,
		})
		require.NoError(t, err)
		assert.Len(t, entries, 3)

		_, err = f.reports.AuditTrail(ctx, billing.AuditFilter{Period: "June"})
		assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
	})
}
