package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testPeriod = billing.Period("2025-06")
	testDay    = billing.Day("2025-06-15")
)

var testWindow = testDay.Window(testutil.Jakarta)

// onDay returns a time on the test day in Jakarta
func onDay(hour, minute int) time.Time {
	return time.Date(2025, 6, 15, hour, minute, 0, 0, testutil.Jakarta)
}

type testRepos struct {
	db        *gorm.DB
	tx        *GormTxManager
	customers *GormCustomerRepository
	invoices  *GormInvoiceRepository
	batches   *GormCashBatchRepository
	reports   *GormReportRepository
	audit     *GormAuditRepository
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return &testRepos{
		db:        db,
		tx:        NewGormTxManager(db),
		customers: NewGormCustomerRepository(db),
		invoices:  NewGormInvoiceRepository(db),
		batches:   NewGormCashBatchRepository(db),
		reports:   NewGormReportRepository(db),
		audit:     NewGormAuditRepository(db),
	}
}

// materialize creates the period's invoices for every active customer
func (r *testRepos) materialize(t *testing.T, period billing.Period) int64 {
	t.Helper()
	ctx := context.Background()
	active, err := r.customers.ListActive(ctx)
	require.NoError(t, err)

	invoices := make([]*billing.Invoice, len(active))
	for i := range active {
		invoices[i] = active[i].NewInvoice(period, time.Now())
	}
	created, err := r.invoices.CreateMissing(ctx, invoices)
	require.NoError(t, err)
	return created
}

func (r *testRepos) pay(t *testing.T, customerID string, method billing.PaymentMethod, collector string, at time.Time) bool {
	t.Helper()
	p, err := billing.NewPayment(method, collector, at)
	require.NoError(t, err)
	ok, err := r.invoices.MarkPaid(context.Background(), testPeriod, customerID, p, billing.DayOf(at, testutil.Jakarta))
	require.NoError(t, err)
	return ok
}

// approvedBatch creates and approves a batch for the collector on the test day
func (r *testRepos) approvedBatch(t *testing.T, collector string) *billing.CashBatch {
	t.Helper()
	ctx := context.Background()
	b, err := billing.NewCashBatch(testPeriod, testDay, collector, billing.CashTally{Count: 1, Total: 1}, onDay(18, 0))
	require.NoError(t, err)
	require.NoError(t, r.batches.Create(ctx, b))
	ok, err := r.batches.Approve(ctx, b.ID, testPeriod, "Admin", onDay(19, 0))
	require.NoError(t, err)
	require.True(t, ok)
	return b
}
