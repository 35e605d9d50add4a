package statements

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	PayoutsSheet = "Payouts"
	SummarySheet = "Summary"
)

// ExcelOptions configures workbook output
type ExcelOptions struct {
	FreezeHeader bool
	AutoFilter   bool
	AmountFormat string
	DateFormat   string
	HeaderFill   string
	HeaderFont   string
}

// DefaultExcelOptions returns default workbook options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		FreezeHeader: true,
		AutoFilter:   true,
		AmountFormat: "#,##0.00",
		DateFormat:   "yyyy-mm-dd hh:mm:ss",
		HeaderFill:   "4472C4",
		HeaderFont:   "FFFFFF",
	}
}

var summaryColumns = []string{
	"distribution_id",
	"asset_id",
	"distributed_at",
	"total_revenue",
	"distribution_amount",
	"equity_bonus_pool",
	"investors",
}

type excelWriter struct {
	file    *excelize.File
	options ExcelOptions

	header int
	amount int
	date   int
}

// WriteXLSX writes a workbook with a payouts sheet and a per distribution
// summary sheet
func WriteXLSX(w io.Writer, st *Statement, options ExcelOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	ew := &excelWriter{file: f, options: options}
	if err := ew.createStyles(); err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", PayoutsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := ew.writePayouts(st); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := ew.writeSummary(st); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (e *excelWriter) createStyles() error {
	var err error
	e.header, err = e.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: e.options.HeaderFont},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.options.HeaderFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	e.amount, err = e.file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.AmountFormat})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}
	e.date, err = e.file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.DateFormat})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	return nil
}

func (e *excelWriter) writeHeader(sheet string, columns []string) error {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := e.file.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := e.file.SetCellStyle(sheet, first, last, e.header); err != nil {
		return err
	}

	if e.options.FreezeHeader {
		if err := e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	return e.file.SetColWidth(sheet, "A", lastCol, 20)
}

// setRow writes values into row n, styling columns listed in styles
func (e *excelWriter) setRow(sheet string, n int, values []any, styles map[int]int) error {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, n)
		if err := e.file.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
		if style, ok := styles[i]; ok {
			if err := e.file.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *excelWriter) writePayouts(st *Statement) error {
	if err := e.writeHeader(PayoutsSheet, Columns); err != nil {
		return err
	}

	styles := map[int]int{2: e.date, 4: e.amount, 5: e.amount, 6: e.amount}
	rows := st.Rows()
	for i, row := range rows {
		values := []any{
			string(row.DistributionID),
			string(row.AssetID),
			row.DistributedAt,
			string(row.Investor),
			row.BaseAmount.InexactFloat64(),
			row.EquityBonus.InexactFloat64(),
			row.TotalAmount.InexactFloat64(),
			row.EquityScore,
			row.ImpactMultiplier,
		}
		if err := e.setRow(PayoutsSheet, i+2, values, styles); err != nil {
			return err
		}
	}

	if e.options.AutoFilter && len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(Columns), len(rows)+1)
		if err := e.file.AutoFilter(PayoutsSheet, "A1:"+last, nil); err != nil {
			return err
		}
	}
	return nil
}

func (e *excelWriter) writeSummary(st *Statement) error {
	if err := e.writeHeader(SummarySheet, summaryColumns); err != nil {
		return err
	}

	styles := map[int]int{2: e.date, 3: e.amount, 4: e.amount, 5: e.amount}
	for i, dist := range st.Distributions {
		values := []any{
			string(dist.ID),
			string(dist.AssetID),
			unixTime(dist.Timestamp),
			dist.TotalRevenue.InexactFloat64(),
			dist.DistributionAmount.InexactFloat64(),
			dist.EquityBonusPool.InexactFloat64(),
			len(dist.Distributions),
		}
		if err := e.setRow(SummarySheet, i+2, values, styles); err != nil {
			return err
		}
	}

	totals := st.Totals()
	n := len(st.Distributions) + 3
	totalRow := []any{
		"total", "", "",
		totals.TotalRevenue.InexactFloat64(),
		totals.Distributed.InexactFloat64(),
		totals.EquityBonus.InexactFloat64(),
		totals.Payouts,
	}
	return e.setRow(SummarySheet, n, totalRow, map[int]int{3: e.amount, 4: e.amount, 5: e.amount})
}
