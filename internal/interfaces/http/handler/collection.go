package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	billingapp "github.com/netcollect/backend/internal/application/billing"
	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/interfaces/http/dto"
)

// CollectionHandler serves the collector screens
type CollectionHandler struct {
	BaseHandler
	ledger  *billingapp.LedgerService
	batches *billingapp.BatchService
	reports *billingapp.ReportService
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(
	ledger *billingapp.LedgerService,
	batches *billingapp.BatchService,
	reports *billingapp.ReportService,
) *CollectionHandler {
	return &CollectionHandler{
		ledger:  ledger,
		batches: batches,
		reports: reports,
	}
}

// EnsurePeriod handles POST /periods/:period/ensure
func (h *CollectionHandler) EnsurePeriod(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	created, err := h.ledger.EnsurePeriod(c.Request.Context(), uri.BillingPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.EnsurePeriodResponse{Period: uri.BillingPeriod(), Created: created})
}

// ListUnpaid handles GET /periods/:period/invoices/unpaid?q=
func (h *CollectionHandler) ListUnpaid(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var query dto.UnpaidQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	lines, err := h.reports.Unpaid(c.Request.Context(), uri.BillingPeriod(), query.Q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, lines, len(lines))
}

// Pay handles POST /periods/:period/payments
func (h *CollectionHandler) Pay(c *gin.Context) {
	collector, ok := actor(c)
	if !ok {
		h.Unauthorized(c, "Collector identity required")
		return
	}
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req dto.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	method, err := billing.ParsePaymentMethod(req.Method)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	inv, err := h.ledger.Pay(c.Request.Context(), billingapp.PayCommand{
		Period:     uri.BillingPeriod(),
		CustomerID: req.CustomerID,
		Method:     method,
		Collector:  collector,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Undo handles POST /periods/:period/invoices/:id/undo
func (h *CollectionHandler) Undo(c *gin.Context) {
	var uri dto.PeriodIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	inv, err := h.ledger.Undo(c.Request.Context(), uri.ID, billing.Period(uri.Period))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// CollectorToday handles GET /periods/:period/collector/today
func (h *CollectionHandler) CollectorToday(c *gin.Context) {
	collector, ok := actor(c)
	if !ok {
		h.Unauthorized(c, "Collector identity required")
		return
	}
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	day, err := h.reports.CollectorDay(c.Request.Context(), uri.BillingPeriod(), collector)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, day)
}

// SubmitBatch handles POST /periods/:period/batches. An empty body submits today.
func (h *CollectionHandler) SubmitBatch(c *gin.Context) {
	collector, ok := actor(c)
	if !ok {
		h.Unauthorized(c, "Collector identity required")
		return
	}
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req dto.SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	day := billing.Day(req.BatchDate)
	if day == "" {
		day = h.batches.Today()
	}

	res, err := h.batches.Submit(c.Request.Context(), billing.SubmitRequest{
		Period:    uri.BillingPeriod(),
		Collector: collector,
		BatchDate: day,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if res.Created {
		h.Created(c, res)
		return
	}
	h.Success(c, res)
}

// Receipt handles GET /invoices/:id/receipt
func (h *CollectionHandler) Receipt(c *gin.Context) {
	var uri dto.IDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	receipt, err := h.ledger.Receipt(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}
