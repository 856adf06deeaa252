package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/netcollect/backend/internal/application/billing"
	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/export"
	"github.com/netcollect/backend/internal/interfaces/http/dto"
)

// AdminHandler serves reconciliation: period totals, batch approval, exports,
// the audit trail and roster sync
type AdminHandler struct {
	BaseHandler
	batches *billingapp.BatchService
	reports *billingapp.ReportService
	roster  *billingapp.RosterService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	batches *billingapp.BatchService,
	reports *billingapp.ReportService,
	roster *billingapp.RosterService,
) *AdminHandler {
	return &AdminHandler{
		batches: batches,
		reports: reports,
		roster:  roster,
	}
}

// Summary handles GET /admin/periods/:period/summary
func (h *AdminHandler) Summary(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	summary, err := h.reports.PeriodSummary(c.Request.Context(), uri.BillingPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// PendingBatches handles GET /admin/periods/:period/batches/pending
func (h *AdminHandler) PendingBatches(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	batches, err := h.reports.PendingBatches(c.Request.Context(), uri.BillingPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, batches, len(batches))
}

// ApprovedTotals handles GET /admin/periods/:period/approved-totals
func (h *AdminHandler) ApprovedTotals(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	totals, err := h.reports.ApprovedTotalsByDate(c.Request.Context(), uri.BillingPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, totals, len(totals))
}

// BatchDetail handles GET /admin/periods/:period/batches/:id
func (h *AdminHandler) BatchDetail(c *gin.Context) {
	var uri dto.PeriodIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	detail, err := h.reports.BatchDetail(c.Request.Context(), billing.Period(uri.Period), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// DateDetail handles GET /admin/periods/:period/dates/:date
func (h *AdminHandler) DateDetail(c *gin.Context) {
	var uri dto.PeriodDateURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	detail, err := h.reports.DateDetail(c.Request.Context(), billing.Period(uri.Period), billing.Day(uri.Date))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Approve handles POST /admin/periods/:period/batches/:id/approve
func (h *AdminHandler) Approve(c *gin.Context) {
	admin, ok := actor(c)
	if !ok {
		h.Unauthorized(c, "Admin identity required")
		return
	}
	var uri dto.PeriodIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	batch, err := h.batches.Approve(c.Request.Context(), uri.ID, billing.Period(uri.Period), admin)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Export handles GET /admin/periods/:period/export.xlsx
func (h *AdminHandler) Export(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	data, err := h.reports.PeriodExport(c.Request.Context(), uri.BillingPeriod())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	// Render fully before the status line goes out so a failure is still a clean 500
	var buf bytes.Buffer
	if err := export.WritePeriodWorkbook(&buf, data, h.reports.Location()); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(data.Period)+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// AuditTrail handles GET /admin/audit?entity=&id=&period=&limit=
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	entries, err := h.reports.AuditTrail(c.Request.Context(), query.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, entries, len(entries))
}

// SyncRoster handles POST /admin/roster/sync
func (h *AdminHandler) SyncRoster(c *gin.Context) {
	admin, ok := actor(c)
	if !ok {
		h.Unauthorized(c, "Admin identity required")
		return
	}
	var req dto.RosterSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.roster.Sync(c.Request.Context(), req.ActiveNames, "api:"+admin)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
