package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/netcollect/backend/internal/infrastructure/cache"
	"github.com/netcollect/backend/internal/infrastructure/event"
	"github.com/netcollect/backend/internal/infrastructure/persistence"
	"github.com/netcollect/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testPeriod = billing.Period("2025-06")
	testDay    = billing.Day("2025-06-15")
)

// onDay returns a time on 2025-06-15 in Jakarta
func onDay(hour, minute int) time.Time {
	return time.Date(2025, 6, 15, hour, minute, 0, 0, testutil.Jakarta)
}

// recorder captures every event published on the bus
type recorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *recorder) handle(_ context.Context, e shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	clock   *shared.FixedClock
	bus     *event.InMemoryEventBus
	events  *recorder
	cache   *cache.InMemorySummaryCache
	ledger  *LedgerService
	batches *BatchService
	reports *ReportService
	roster  *RosterService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	tx := persistence.NewGormTxManager(db)
	customers := persistence.NewGormCustomerRepository(db)
	invoices := persistence.NewGormInvoiceRepository(db)
	batches := persistence.NewGormCashBatchRepository(db)
	reports := persistence.NewGormReportRepository(db)
	audit := persistence.NewGormAuditRepository(db)

	f := &fixture{
		db:     db,
		clock:  shared.NewFixedClock(onDay(9, 0)),
		bus:    event.NewInMemoryEventBus(nil),
		events: &recorder{},
		cache:  cache.NewInMemorySummaryCache(time.Hour),
	}
	f.bus.Subscribe(event.NewFuncHandler("recorder", f.events.handle))
	f.bus.Subscribe(cache.NewSummaryInvalidator(f.cache))

	opts := []Option{
		WithClock(f.clock),
		WithLocation(testutil.Jakarta),
		WithEventBus(f.bus),
		WithSummaryCache(f.cache),
	}
	f.ledger = NewLedgerService(tx, customers, invoices, batches, reports, audit, opts...)
	f.batches = NewBatchService(tx, invoices, batches, audit, opts...)
	f.reports = NewReportService(reports, invoices, batches, audit, f.ledger, opts...)
	f.roster = NewRosterService(tx, customers, audit, billing.RosterDefaults{Address: "winduaji", MonthlyFee: 150000}, opts...)
	return f
}

// seed inserts active customers with the given fee and materializes testPeriod
func (f *fixture) seed(t *testing.T, fee int64, ids ...string) {
	t.Helper()
	for _, id := range ids {
		testutil.SeedCustomer(t, f.db, id, "Pelanggan "+id, fee)
	}
	_, err := f.ledger.EnsurePeriod(context.Background(), testPeriod)
	require.NoError(t, err)
}

func (f *fixture) pay(t *testing.T, customerID string, method billing.PaymentMethod, collector string) *billing.Invoice {
	t.Helper()
	inv, err := f.ledger.Pay(context.Background(), PayCommand{
		Period:     testPeriod,
		CustomerID: customerID,
		Method:     method,
		Collector:  collector,
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) submit(t *testing.T, collector string) *billing.SubmitResult {
	t.Helper()
	res, err := f.batches.Submit(context.Background(), billing.SubmitRequest{
		Period:    testPeriod,
		Collector: collector,
		BatchDate: testDay,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) invoice(t *testing.T, customerID string) *billing.Invoice {
	t.Helper()
	return testutil.LoadInvoice(t, f.db, testPeriod, customerID)
}
