// Package report renders a day's attendance review as a text table or an
// XLSX workbook.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// Headers are the review columns.
var Headers = []string{"Name", "ID", "Gender", "Status"}

// Rows flattens entries into table rows. Entries whose student no longer
// exists render as "Unknown" with "-" placeholders.
func Rows(entries []portal.AttendanceEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StudentName(),
			e.StudentField(func(s *portal.Student) string { return s.IDNumber }),
			e.StudentField(func(s *portal.Student) string { return s.Gender }),
			e.Status,
		})
	}
	return rows
}

// WriteText writes entries as a tab-aligned table followed by a total line.
func WriteText(out io.Writer, entries []portal.AttendanceEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tGENDER\tSTATUS")
	fmt.Fprintln(w, "----\t--\t------\t------")
	for _, row := range Rows(entries) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nTotal: %d records\n", len(entries))
	return err
}

// WriteXLSX saves entries to a workbook at path with one sheet named after
// the date.
func WriteXLSX(path, date string, entries []portal.AttendanceEntry) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Println("error closing workbook:", err)
		}
	}()

	sheet := date
	if sheet == "" {
		sheet = "Attendance"
	}
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
	}
	for r, row := range Rows(entries) {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}
