// Package report renders a dataset's summary statistics and top records as
// an Excel workbook for download. Writing a report is a pure function of its
// inputs; no state is shared between calls.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/helioview/helioview/pkg/dataset"
)

const summarySheet = "Summary"

// Params describes one report. Metrics absent from the dataset are skipped,
// mirroring summary-statistics semantics. TopN bounds the per-metric top
// records sheet; values <= 0 disable those sheets.
type Params struct {
	Title   string
	Dataset *dataset.Dataset
	Metrics []string
	TopN    int
}

// Write renders the workbook to w.
func Write(w io.Writer, p Params) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, p); err != nil {
		return err
	}
	if p.TopN > 0 {
		if err := writeTopSheets(f, p); err != nil {
			return err
		}
	}

	// The default sheet is replaced by Summary.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, p Params) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	title := p.Title
	if title == "" {
		title = "Solar Dataset Summary"
	}
	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellValue(summarySheet, "A2", fmt.Sprintf("Rows: %d", p.Dataset.NumRows())); err != nil {
		return err
	}

	headers := []string{"Metric", "Count", "Mean", "Median", "Std Dev", "Min", "Max"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 4)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, cell, h); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(summarySheet, "A4", "G4", style)
	}

	for row, s := range p.Dataset.SummaryStatistics(p.Metrics) {
		values := []any{
			s.Metric, s.Count,
			cellFloat(s.Mean), cellFloat(s.Median), cellFloat(s.StdDev),
			cellFloat(s.Min), cellFloat(s.Max),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+5)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTopSheets(f *excelize.File, p Params) error {
	for _, metric := range p.Metrics {
		if !p.Dataset.HasColumn(metric) {
			continue
		}
		top, err := p.Dataset.TopN(metric, p.TopN)
		if err != nil {
			return err
		}

		sheet := "Top " + metric
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
		if err := f.SetCellValue(sheet, "A1", "Timestamp"); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, "B1", metric); err != nil {
			return err
		}

		vals, _ := top.MetricValues(metric)
		for i, v := range vals {
			ts := ""
			if t, ok := top.Time(i); ok {
				ts = t.Format(time.RFC3339)
			}
			if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), ts); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), v); err != nil {
				return err
			}
		}
	}
	return nil
}

// cellFloat keeps NaN out of cells; Excel has no NaN literal.
func cellFloat(v dataset.Float) any {
	if v.IsNull() {
		return ""
	}
	return float64(v)
}
