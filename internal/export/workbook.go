// Package export renders ranking results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"market-dashboard/internal/market"
)

const (
	rankingSheet = "Rankings"
	summarySheet = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var rankingHeader = []any{
	"순위", "자치구", "등급", "추정 매출액", "추정 거래건수", "가맹점수", "점포당 매출(중앙값)", "건당 매출(중앙값)",
}

// RankingWorkbook writes one row per ranked district plus a summary sheet
// naming the industry and criterion.
func RankingWorkbook(w io.Writer, industry string, ta market.TierAssignment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(rankingSheet, "A1", &rankingHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range rankingHeader {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(rankingSheet, col, col, 18); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, s := range ta.Ranked {
		row := []any{
			i + 1,
			s.District,
			tierLabel(ta.TierOf(s.District)),
			math.Round(s.TotalSales),
			math.Round(s.TotalTransactions),
			s.TotalStores,
			math.Round(s.AvgSalesPerStore),
			math.Round(s.AvgSalesPerTx),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"업종", industry},
		{"기준", string(ta.Criterion)},
		{"자치구 수", len(ta.Ranked)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func tierLabel(tier int) string {
	if tier == 0 {
		return "-"
	}
	return fmt.Sprintf("%d등급", tier)
}
