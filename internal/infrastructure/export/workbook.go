// Package export renders billing reports as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the period workbook
const (
	SheetSummary  = "Summary"
	SheetUnpaid   = "Unpaid"
	SheetBatches  = "Cash batches"
	SheetApproved = "Approved by date"
)

// ContentType is the MIME type of an xlsx workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName returns the download name for a period workbook
func FileName(period billing.Period) string {
	return fmt.Sprintf("netcollect_%s.xlsx", period)
}

// WritePeriodWorkbook renders data as an xlsx workbook to w
func WritePeriodWorkbook(w io.Writer, data *billing.PeriodExport, loc *time.Location) error {
	f, err := BuildPeriodWorkbook(data, loc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// BuildPeriodWorkbook lays out the period's summary, unpaid list, batches and
// approved daily totals on separate sheets. Timestamps are shown in loc.
func BuildPeriodWorkbook(data *billing.PeriodExport, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()

	sheets := []struct {
		name    string
		headers []string
		widths  []float64
		rows    [][]any
	}{
		{SheetSummary, []string{"Item", "Invoices", "Amount"}, []float64{24, 12, 16}, summaryRows(data)},
		{SheetUnpaid, []string{"Customer ID", "Name", "Address", "Amount"}, []float64{14, 30, 24, 14}, unpaidRows(data.Unpaid)},
		{SheetBatches, []string{"Batch", "Date", "Collector", "Invoices", "Total cash", "Status", "Approved by", "Approved at"},
			[]float64{8, 12, 18, 10, 14, 12, 16, 20}, batchRows(data.Batches, loc)},
		{SheetApproved, []string{"Date", "Batches", "Invoices", "Total cash"}, []float64{12, 10, 10, 14}, approvedRows(data.ApprovedTotals)},
	}

	for i, s := range sheets {
		var err error
		if i == 0 {
			err = f.SetSheetName("Sheet1", s.name)
		} else {
			_, err = f.NewSheet(s.name)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.headers, s.widths, s.rows); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Collection report %s", data.Period),
		Creator: "netcollect",
		Created: data.GeneratedAt.UTC().Format(time.RFC3339),
	})
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, widths []float64, rows [][]any) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func summaryRows(data *billing.PeriodExport) [][]any {
	s := data.Summary
	if s == nil {
		s = &billing.PeriodSummary{Period: data.Period}
	}
	return [][]any{
		{"Period", data.Period.String(), ""},
		{"Unpaid", s.Unpaid.Count, s.Unpaid.Total},
		{"Transfer", s.Transfer.Count, s.Transfer.Total},
		{"Cash verified", s.VerifiedCash.Count, s.VerifiedCash.Total},
		{"Cash awaiting approval", s.PendingCash.Count, s.PendingCash.Total},
		{"Total paid", s.Paid.Count, s.Paid.Total},
	}
}

func unpaidRows(lines []billing.UnpaidLine) [][]any {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{l.CustomerID, l.Name, l.Address, l.Amount}
	}
	return rows
}

func batchRows(batches []billing.CashBatch, loc *time.Location) [][]any {
	rows := make([][]any, len(batches))
	for i, b := range batches {
		approvedAt := ""
		if b.ApprovedAt != nil {
			approvedAt = b.ApprovedAt.In(loc).Format("2006-01-02 15:04")
		}
		rows[i] = []any{b.ID, b.BatchDate.String(), b.Collector, b.Count, b.TotalCash, b.Status.String(), b.ApprovedBy, approvedAt}
	}
	return rows
}

func approvedRows(totals []billing.DailyApprovedTotal) [][]any {
	rows := make([][]any, len(totals))
	for i, t := range totals {
		rows[i] = []any{t.BatchDate.String(), t.Batches, t.Count, t.Total}
	}
	return rows
}
