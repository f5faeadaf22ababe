// Package export renders stored audit results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// SheetName is the worksheet holding the result rows.
const SheetName = "Results"

// Columns is the header row, in order.
var Columns = []string{
	"Target", "Client", "Time (UTC)",
	"Performance", "Accessibility", "Best Practices", "SEO",
	"Uptime", "Latency (ms)", "Opportunities",
}

// WriteResults writes an XLSX workbook with one row per result to w.
func WriteResults(w io.Writer, results []models.AuditResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, r := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			r.TargetID,
			r.ClientID,
			time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339),
			r.Scores.Performance,
			r.Scores.Accessibility,
			r.Scores.BestPractices,
			r.Scores.SEO,
			string(r.Uptime.Status),
			latency(r.Uptime),
			strings.Join(r.Opportunities, "; "),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "C", 22); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(SheetName, "J", "J", 48); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func latency(u models.Uptime) any {
	if u.Latency == nil {
		return ""
	}
	return *u.Latency
}
