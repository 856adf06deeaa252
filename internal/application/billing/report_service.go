package billing

import (
	"context"
	"strings"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PeriodEnsurer materializes a period's invoices
type PeriodEnsurer interface {
	EnsurePeriod(ctx context.Context, period billing.Period) (int64, error)
}

// ReportService answers the collector and admin read queries
type ReportService struct {
	serviceOptions
	reports  billing.ReportRepository
	invoices billing.InvoiceRepository
	batches  billing.CashBatchRepository
	audit    billing.AuditRepository
	ensurer  PeriodEnsurer
}

// NewReportService creates a new ReportService.
// A nil ensurer leaves Unpaid reading the ledger as it is.
func NewReportService(
	reports billing.ReportRepository,
	invoices billing.InvoiceRepository,
	batches billing.CashBatchRepository,
	audit billing.AuditRepository,
	ensurer PeriodEnsurer,
	opts ...Option,
) *ReportService {
	return &ReportService{
		serviceOptions: newServiceOptions(opts),
		reports:        reports,
		invoices:       invoices,
		batches:        batches,
		audit:          audit,
		ensurer:        ensurer,
	}
}

// Location returns the billing time zone
func (s *ReportService) Location() *time.Location {
	return s.loc
}

// Unpaid lists the period's unpaid invoices of active customers, materializing
// the period first. search filters on customer ID or name.
func (s *ReportService) Unpaid(ctx context.Context, period billing.Period, search string) ([]billing.UnpaidLine, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "unpaid",
		telemetry.SpanAttrPeriod, period.String())
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	if s.ensurer != nil {
		if _, err := s.ensurer.EnsurePeriod(ctx, period); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	lines, err := s.reports.ListUnpaid(ctx, period, strings.TrimSpace(search))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return lines, nil
}

// PaidToday lists what the collector marked paid today, newest first, each
// flagged with whether it can still be undone
func (s *ReportService) PaidToday(ctx context.Context, period billing.Period, collector string) ([]billing.PaidLine, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "paid_today",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrCollector, collector)
	defer span.End()

	period, collector, err := collectorArgs(period, collector)
	if err != nil {
		return nil, err
	}
	lines, err := s.paidOn(ctx, period, collector, s.today())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return lines, nil
}

func (s *ReportService) paidOn(ctx context.Context, period billing.Period, collector string, day billing.Day) ([]billing.PaidLine, error) {
	lines, err := s.reports.ListPaidByCollector(ctx, period, collector, day.Window(s.loc))
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range lines {
		lines[i].CanUndo = lines[i].Invoice().CanUndo(now, s.loc)
	}
	return lines, nil
}

// CashPendingToday tallies the collector's cash paid today that is not yet in a batch
func (s *ReportService) CashPendingToday(ctx context.Context, period billing.Period, collector string) (billing.CashTally, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "cash_pending_today",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrCollector, collector)
	defer span.End()

	period, collector, err := collectorArgs(period, collector)
	if err != nil {
		return billing.CashTally{}, err
	}
	tally, err := s.invoices.TallyUnbatchedCash(ctx, period, collector, s.today().Window(s.loc))
	if err != nil {
		telemetry.RecordError(span, err)
		return billing.CashTally{}, err
	}
	return tally, nil
}

// CollectorDay bundles today's payments, unbatched cash and batches for a collector
func (s *ReportService) CollectorDay(ctx context.Context, period billing.Period, collector string) (*billing.CollectorDay, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "collector_day",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrCollector, collector)
	defer span.End()

	period, collector, err := collectorArgs(period, collector)
	if err != nil {
		return nil, err
	}
	day := s.today()
	out := &billing.CollectorDay{Period: period, Day: day, Collector: collector}

	if out.Paid, err = s.paidOn(ctx, period, collector, day); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out.CashPending, err = s.invoices.TallyUnbatchedCash(ctx, period, collector, day.Window(s.loc)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out.PendingBatch, err = s.batches.FindForCollectorDay(ctx, period, day, collector, billing.BatchStatusPending); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out.ApprovedBatch, err = s.batches.FindForCollectorDay(ctx, period, day, collector, billing.BatchStatusApproved); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out.DayClosed = out.ApprovedBatch != nil
	for _, l := range out.Paid {
		if l.Method == billing.PaymentMethodTransfer && !l.Locked {
			out.TransferWindowOpen = true
			break
		}
	}
	return out, nil
}

// PeriodSummary aggregates the period's invoices, served from the summary cache when warm
func (s *ReportService) PeriodSummary(ctx context.Context, period billing.Period) (*billing.PeriodSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "period_summary",
		telemetry.SpanAttrPeriod, period.String())
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if summary, ok := s.cache.Get(ctx, period); ok {
			telemetry.SetAttributes(span, "cache.hit", true)
			return summary, nil
		}
	}

	summary, err := s.reports.Summary(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.log(ctx).Warn("cache period summary failed", zap.String("period", period.String()), zap.Error(err))
		}
	}
	return summary, nil
}

// PendingBatches lists the period's batches awaiting approval
func (s *ReportService) PendingBatches(ctx context.Context, period billing.Period) ([]billing.CashBatch, error) {
	return s.batchesByStatus(ctx, period, billing.BatchStatusPending)
}

func (s *ReportService) batchesByStatus(ctx context.Context, period billing.Period, status billing.BatchStatus) ([]billing.CashBatch, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "batches_by_status",
		telemetry.SpanAttrPeriod, period.String(),
		"billing.batch_status", status.String())
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	batches, err := s.batches.ListByStatus(ctx, period, status)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return batches, nil
}

// ApprovedTotalsByDate groups the period's approved batches by batch date
func (s *ReportService) ApprovedTotalsByDate(ctx context.Context, period billing.Period) ([]billing.DailyApprovedTotal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "approved_totals",
		telemetry.SpanAttrPeriod, period.String())
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	totals, err := s.reports.ApprovedTotalsByDate(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return totals, nil
}

// BatchDetail returns a batch of period with its member invoices
func (s *ReportService) BatchDetail(ctx context.Context, period billing.Period, batchID int64) (*billing.BatchDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "batch_detail",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrBatchID, batchID)
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	if batchID <= 0 {
		return nil, billing.ErrInvalidBatchID
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Period != period {
		return nil, billing.ErrBatchNotFound
	}
	lines, err := s.reports.BatchLines(ctx, batchID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &billing.BatchDetail{Batch: batch, Lines: lines}, nil
}

// DateDetail lists the transfers and verified cash paid on day, with subtotals
func (s *ReportService) DateDetail(ctx context.Context, period billing.Period, day billing.Day) (*billing.DateDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "date_detail",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrDay, day.String())
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}
	if day, err = billing.ParseDay(day.String()); err != nil {
		return nil, err
	}
	lines, err := s.reports.DateLines(ctx, period, day.Window(s.loc))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return billing.NewDateDetail(period, day, lines), nil
}

// AuditTrail lists recorded events, newest first
func (s *ReportService) AuditTrail(ctx context.Context, filter billing.AuditFilter) ([]billing.AuditEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "audit_trail",
		"audit.aggregate_type", filter.AggregateType,
		"audit.aggregate_id", filter.AggregateID)
	defer span.End()

	if filter.Period != "" {
		period, err := billing.ParsePeriod(filter.Period.String())
		if err != nil {
			return nil, err
		}
		filter.Period = period
	}
	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return entries, nil
}

// PeriodExport gathers everything written to a period workbook
func (s *ReportService) PeriodExport(ctx context.Context, period billing.Period) (*billing.PeriodExport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "report", "period_export",
		telemetry.SpanAttrPeriod, period.String())
	defer span.End()

	period, err := billing.ParsePeriod(period.String())
	if err != nil {
		return nil, err
	}

	out := &billing.PeriodExport{Period: period, GeneratedAt: s.now()}
	if out.Summary, err = s.reports.Summary(ctx, period); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out.Unpaid, err = s.reports.ListUnpaid(ctx, period, ""); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, status := range []billing.BatchStatus{billing.BatchStatusPending, billing.BatchStatusApproved} {
		batches, err := s.batches.ListByStatus(ctx, period, status)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		out.Batches = append(out.Batches, batches...)
	}
	if out.ApprovedTotals, err = s.reports.ApprovedTotalsByDate(ctx, period); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return out, nil
}

func collectorArgs(period billing.Period, collector string) (billing.Period, string, error) {
	p, err := billing.ParsePeriod(period.String())
	if err != nil {
		return "", "", err
	}
	collector = strings.TrimSpace(collector)
	if collector == "" {
		return "", "", billing.ErrCollectorRequired
	}
	return p, collector, nil
}
