package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWritePeriodWorkbook(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	approvedAt := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)
	data := &billing.PeriodExport{
		Period:      "2025-06",
		GeneratedAt: approvedAt,
		Summary: &billing.PeriodSummary{
			Period:       "2025-06",
			Unpaid:       billing.CashTally{Count: 1, Total: 80000},
			VerifiedCash: billing.CashTally{Count: 2, Total: 250000},
			Transfer:     billing.CashTally{Count: 1, Total: 120000},
			Paid:         billing.CashTally{Count: 3, Total: 370000},
		},
		Unpaid: []billing.UnpaidLine{{InvoiceID: 5, CustomerID: "005", Name: "Eko", Address: "winduaji", Amount: 80000}},
		Batches: []billing.CashBatch{{
			ID: 1, BatchDate: "2025-06-15", Collector: "Ali", Count: 2, TotalCash: 250000,
			Status: billing.BatchStatusApproved, ApprovedBy: "Admin", ApprovedAt: &approvedAt,
		}},
		ApprovedTotals: []billing.DailyApprovedTotal{{BatchDate: "2025-06-15", Batches: 1, Count: 2, Total: 250000}},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePeriodWorkbook(&buf, data, jakarta))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetUnpaid, SheetBatches, SheetApproved}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 7)
	assert.Equal(t, []string{"Total paid", "3", "370000"}, summary[6])

	unpaid, err := f.GetRows(SheetUnpaid)
	require.NoError(t, err)
	require.Len(t, unpaid, 2)
	assert.Equal(t, []string{"005", "Eko", "winduaji", "80000"}, unpaid[1])

	batches, err := f.GetRows(SheetBatches)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "APPROVED", batches[1][5])
	assert.Equal(t, "2025-06-15 19:30", batches[1][7], "shown in the billing zone")

	approved, err := f.GetRows(SheetApproved)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-15", "1", "2", "250000"}, approved[1])
}

func TestBuildPeriodWorkbook_Empty(t *testing.T) {
	f, err := BuildPeriodWorkbook(&billing.PeriodExport{Period: "2025-07"}, nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetUnpaid)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
	assert.Equal(t, "netcollect_2025-07.xlsx", FileName("2025-07"))
}
