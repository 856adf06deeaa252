package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/netcollect/backend/internal/application/billing"
	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/netcollect/backend/internal/infrastructure/auth"
	"github.com/netcollect/backend/internal/infrastructure/cache"
	"github.com/netcollect/backend/internal/infrastructure/config"
	"github.com/netcollect/backend/internal/infrastructure/event"
	"github.com/netcollect/backend/internal/infrastructure/export"
	"github.com/netcollect/backend/internal/infrastructure/persistence"
	"github.com/netcollect/backend/internal/interfaces/http/dto"
	"github.com/netcollect/backend/internal/interfaces/http/handler"
	"github.com/netcollect/backend/internal/interfaces/http/middleware"
	"github.com/netcollect/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type apiFixture struct {
	t      *testing.T
	db     *gorm.DB
	clock  *shared.FixedClock
	engine *gin.Engine
}

func newAPIFixture(t *testing.T, authCfg middleware.AuthConfig) *apiFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	tx := persistence.NewGormTxManager(db)
	customers := persistence.NewGormCustomerRepository(db)
	invoices := persistence.NewGormInvoiceRepository(db)
	batchRepo := persistence.NewGormCashBatchRepository(db)
	reportRepo := persistence.NewGormReportRepository(db)
	audit := persistence.NewGormAuditRepository(db)

	clock := shared.NewFixedClock(time.Date(2025, 6, 15, 9, 0, 0, 0, testutil.Jakarta))
	bus := event.NewInMemoryEventBus(nil)
	summaries := cache.NewInMemorySummaryCache(time.Hour)
	bus.Subscribe(cache.NewSummaryInvalidator(summaries))

	opts := []billingapp.Option{
		billingapp.WithClock(clock),
		billingapp.WithLocation(testutil.Jakarta),
		billingapp.WithEventBus(bus),
		billingapp.WithSummaryCache(summaries),
	}
	ledger := billingapp.NewLedgerService(tx, customers, invoices, batchRepo, reportRepo, audit, opts...)
	batches := billingapp.NewBatchService(tx, invoices, batchRepo, audit, opts...)
	reports := billingapp.NewReportService(reportRepo, invoices, batchRepo, audit, ledger, opts...)
	roster := billingapp.NewRosterService(tx, customers, audit,
		billing.RosterDefaults{Address: "winduaji", MonthlyFee: 150000}, opts...)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	engine, err := NewEngine(Config{
		ServiceName: "netcollect",
		CORS:        middleware.DefaultCORSConfig(),
		Auth:        authCfg,
	}, Handlers{
		System:     handler.NewSystemHandler("netcollect", sqlDB),
		Collection: handler.NewCollectionHandler(ledger, batches, reports),
		Admin:      handler.NewAdminHandler(batches, reports, roster),
	})
	require.NoError(t, err)

	return &apiFixture{t: t, db: db, clock: clock, engine: engine}
}

// do sends body as JSON with the given identity headers
func (f *apiFixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) decode(w *httptest.ResponseRecorder, data any) envelope {
	f.t.Helper()
	var env envelope
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(f.t, json.Unmarshal(env.Data, data))
	}
	return env
}

var (
	asAli   = map[string]string{middleware.CollectorHeader: "Ali"}
	asBudi  = map[string]string{middleware.CollectorHeader: "Budi"}
	asAdmin = map[string]string{middleware.AdminHeader: "Admin"}
)

func TestAPI_HealthRoutesSkipAuth(t *testing.T) {
	f := newAPIFixture(t, middleware.AuthConfig{})

	w := f.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)

	w = f.do(http.MethodGet, "/api/v1/system/info", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAPI_CollectionDay(t *testing.T) {
	f := newAPIFixture(t, middleware.AuthConfig{})
	testutil.SeedCustomer(t, f.db, "001", "Andi", 150000)
	testutil.SeedCustomer(t, f.db, "002", "Budi Santoso", 150000)
	testutil.SeedCustomer(t, f.db, "003", "Citra", 175000)

	var ensured dto.EnsurePeriodResponse
	w := f.do(http.MethodPost, "/api/v1/periods/2025-06/ensure", nil, asAli)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f.decode(w, &ensured)
	assert.Equal(t, int64(3), ensured.Created)

	var unpaid []billing.UnpaidLine
	w = f.do(http.MethodGet, "/api/v1/periods/2025-06/invoices/unpaid?q=santoso", nil, asAli)
	require.Equal(t, http.StatusOK, w.Code)
	env := f.decode(w, &unpaid)
	require.Len(t, unpaid, 1)
	assert.Equal(t, "002", unpaid[0].CustomerID)
	assert.Equal(t, 1, env.Meta.Total)

	var cash billing.Invoice
	w = f.do(http.MethodPost, "/api/v1/periods/2025-06/payments",
		dto.PayRequest{CustomerID: "001", Method: "cash"}, asAli)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f.decode(w, &cash)
	assert.Equal(t, billing.InvoiceStatusPaid, cash.Status)
	assert.Equal(t, billing.PaymentMethodCash, cash.Method)
	assert.Equal(t, "Ali", cash.Collector)

	t.Run("paying twice is refused", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/periods/2025-06/payments",
			dto.PayRequest{CustomerID: "001", Method: "TRANSFER"}, asBudi)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		assert.Equal(t, "INVOICE_ALREADY_PAID", f.decode(w, nil).Error.Code)
	})

	t.Run("bad method is a validation error", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/periods/2025-06/payments",
			map[string]string{"customer_id": "002", "method": "cheque"}, asAli)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := f.decode(w, nil)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		require.NotEmpty(t, env.Error.Details)
		assert.Equal(t, "method", env.Error.Details[0].Field)
	})

	t.Run("bad period in the path", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/periods/2025-13/invoices/unpaid", nil, asAli)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("transfer can be undone the same day", func(t *testing.T) {
		var transfer billing.Invoice
		w := f.do(http.MethodPost, "/api/v1/periods/2025-06/payments",
			dto.PayRequest{CustomerID: "003", Method: "transfer"}, asAli)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &transfer)

		var undone billing.Invoice
		w = f.do(http.MethodPost, fmt.Sprintf("/api/v1/periods/2025-06/invoices/%d/undo", transfer.ID), nil, asAli)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		f.decode(w, &undone)
		assert.Equal(t, billing.InvoiceStatusUnpaid, undone.Status)
		assert.Empty(t, undone.Collector)

		w = f.do(http.MethodPost, fmt.Sprintf("/api/v1/periods/2025-07/invoices/%d/undo", transfer.ID), nil, asAli)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	var day billing.CollectorDay
	w = f.do(http.MethodGet, "/api/v1/periods/2025-06/collector/today", nil, asAli)
	require.Equal(t, http.StatusOK, w.Code)
	f.decode(w, &day)
	assert.Equal(t, billing.Day("2025-06-15"), day.Day)
	assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, day.CashPending)
	assert.False(t, day.TransferWindowOpen, "the only transfer was undone")

	w = f.do(http.MethodPost, "/api/v1/periods/2025-06/payments",
		dto.PayRequest{CustomerID: "003", Method: "TRANSFER"}, asAli)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.do(http.MethodGet, "/api/v1/periods/2025-06/collector/today", nil, asAli)
	require.Equal(t, http.StatusOK, w.Code)
	day = billing.CollectorDay{}
	f.decode(w, &day)
	assert.True(t, day.TransferWindowOpen)

	var first billing.SubmitResult
	w = f.do(http.MethodPost, "/api/v1/periods/2025-06/batches", nil, asAli)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f.decode(w, &first)
	require.NotNil(t, first.Batch)
	assert.True(t, first.Created)
	assert.Equal(t, int64(150000), first.Batch.TotalCash)
	assert.Equal(t, int64(1), first.TransfersLocked)

	w = f.do(http.MethodGet, "/api/v1/periods/2025-06/collector/today", nil, asAli)
	require.Equal(t, http.StatusOK, w.Code)
	day = billing.CollectorDay{}
	f.decode(w, &day)
	assert.False(t, day.TransferWindowOpen, "submitting locks the day's transfers")

	var second billing.SubmitResult
	w = f.do(http.MethodPost, "/api/v1/periods/2025-06/batches",
		dto.SubmitBatchRequest{BatchDate: "2025-06-15"}, asAli)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f.decode(w, &second)
	assert.False(t, second.Created)
	assert.Equal(t, first.Batch.ID, second.Batch.ID)

	t.Run("submitted cash cannot be undone", func(t *testing.T) {
		w := f.do(http.MethodPost, fmt.Sprintf("/api/v1/periods/2025-06/invoices/%d/undo", cash.ID), nil, asAli)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INVOICE_LOCKED", f.decode(w, nil).Error.Code)
	})

	t.Run("receipt", func(t *testing.T) {
		var receipt billing.Receipt
		w := f.do(http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/receipt", cash.ID), nil, asBudi)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &receipt)
		assert.Equal(t, "Andi", receipt.Customer.Name)
		assert.Equal(t, int64(150000), receipt.Invoice.Amount)

		w = f.do(http.MethodGet, "/api/v1/invoices/9999/receipt", nil, asBudi)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("approval closes the day", func(t *testing.T) {
		approvePath := fmt.Sprintf("/api/v1/admin/periods/2025-06/batches/%d/approve", first.Batch.ID)

		w := f.do(http.MethodPost, approvePath, nil, asAli)
		assert.Equal(t, http.StatusForbidden, w.Code)

		var approved billing.CashBatch
		w = f.do(http.MethodPost, approvePath, nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		f.decode(w, &approved)
		assert.Equal(t, billing.BatchStatusApproved, approved.Status)
		assert.Equal(t, "Admin", approved.ApprovedBy)

		w = f.do(http.MethodPost, approvePath, nil, asAdmin)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = f.do(http.MethodPost, "/api/v1/periods/2025-06/batches", nil, asAli)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "DAY_CLOSED", f.decode(w, nil).Error.Code)
	})
}

func TestAPI_AdminViews(t *testing.T) {
	f := newAPIFixture(t, middleware.AuthConfig{})
	testutil.SeedCustomer(t, f.db, "001", "Andi", 150000)
	testutil.SeedCustomer(t, f.db, "002", "Budi", 150000)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/periods/2025-06/ensure", nil, asAdmin).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/periods/2025-06/payments",
		dto.PayRequest{CustomerID: "001", Method: "cash"}, asAli).Code)
	w := f.do(http.MethodPost, "/api/v1/periods/2025-06/batches", nil, asAli)
	require.Equal(t, http.StatusCreated, w.Code)
	var submitted billing.SubmitResult
	f.decode(w, &submitted)

	t.Run("summary", func(t *testing.T) {
		var summary billing.PeriodSummary
		w := f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/summary", nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &summary)
		assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, summary.Unpaid)
		assert.Equal(t, billing.CashTally{Count: 1, Total: 150000}, summary.PendingCash)
	})

	t.Run("pending batches", func(t *testing.T) {
		var pending []billing.CashBatch
		w := f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/batches/pending", nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &pending)
		require.Len(t, pending, 1)
		assert.Equal(t, submitted.Batch.ID, pending[0].ID)
	})

	t.Run("batch detail", func(t *testing.T) {
		var detail billing.BatchDetail
		w := f.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/periods/2025-06/batches/%d", submitted.Batch.ID), nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &detail)
		require.Len(t, detail.Lines, 1)
		assert.Equal(t, "001", detail.Lines[0].CustomerID)
	})

	t.Run("date detail waits for approval", func(t *testing.T) {
		var detail billing.DateDetail
		w := f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/dates/2025-06-15", nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &detail)
		assert.Empty(t, detail.Lines)

		w = f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/dates/15-06-2025", nil, asAdmin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approved totals", func(t *testing.T) {
		w := f.do(http.MethodPost,
			fmt.Sprintf("/api/v1/admin/periods/2025-06/batches/%d/approve", submitted.Batch.ID), nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)

		var totals []billing.DailyApprovedTotal
		w = f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/approved-totals", nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		f.decode(w, &totals)
		require.Len(t, totals, 1)
		assert.Equal(t, int64(150000), totals[0].Total)
	})

	t.Run("export", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/export.xlsx", nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), export.FileName("2025-06"))
		// xlsx is a zip archive
		assert.Equal(t, []byte("PK"), w.Body.Bytes()[:2])
	})

	t.Run("audit trail", func(t *testing.T) {
		var entries []billing.AuditEntry
		w := f.do(http.MethodGet, "/api/v1/admin/audit?entity=CashBatch", nil, asAdmin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		f.decode(w, &entries)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, billing.AggregateTypeCashBatch, e.AggregateType)
		}

		w = f.do(http.MethodGet, "/api/v1/admin/audit?entity=Warehouse", nil, asAdmin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("roster sync", func(t *testing.T) {
		var res billing.RosterSyncResult
		w := f.do(http.MethodPost, "/api/v1/admin/roster/sync",
			dto.RosterSyncRequest{ActiveNames: []string{"Andi", "Dewi"}}, asAdmin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		f.decode(w, &res)
		assert.Equal(t, 2, res.Active)
		assert.Len(t, res.Created, 1)

		w = f.do(http.MethodPost, "/api/v1/admin/roster/sync",
			dto.RosterSyncRequest{ActiveNames: []string{}}, asAdmin)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = f.do(http.MethodPost, "/api/v1/admin/roster/sync",
			dto.RosterSyncRequest{ActiveNames: []string{"Andi"}}, asBudi)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAPI_TokenAuth(t *testing.T) {
	jwtService := auth.NewJWTService(config.AuthConfig{
		Enabled:  true,
		Secret:   "test-secret-at-least-32-bytes-long!",
		Issuer:   "netcollect",
		TokenTTL: time.Hour,
	})
	f := newAPIFixture(t, middleware.AuthConfig{Enabled: true, JWTService: jwtService})

	collector, err := jwtService.Issue("Ali", auth.RoleCollector)
	require.NoError(t, err)
	admin, err := jwtService.Issue("Admin", auth.RoleAdmin)
	require.NoError(t, err)
	bearer := func(tok *auth.IssuedToken) map[string]string {
		return map[string]string{middleware.AuthHeaderKey: middleware.BearerPrefix + tok.AccessToken}
	}

	w := f.do(http.MethodGet, "/api/v1/periods/2025-06/collector/today", nil, asAli)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "headers are ignored when tokens are on")

	w = f.do(http.MethodGet, "/api/v1/periods/2025-06/collector/today", nil, bearer(collector))
	require.Equal(t, http.StatusOK, w.Code)
	var day billing.CollectorDay
	f.decode(w, &day)
	assert.Equal(t, "Ali", day.Collector)

	w = f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/summary", nil, bearer(collector))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/summary", nil, bearer(admin))
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v1/admin/periods/2025-06/summary", nil,
		map[string]string{middleware.AuthHeaderKey: "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenInvalid, f.decode(w, nil).Error.Code)
}
