// Package report exports job outcomes to an XLSX workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"copyverify/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary      = "Summary"
	SheetCopied       = "Copied"
	SheetFailed       = "Failed"
	SheetVerification = "Verification"
)

// Report is everything one run produced. Verification is nil when the run
// did not verify.
type Report struct {
	Source       string
	Destination  string
	Algorithm    string
	Stats        domain.JobStats
	Verification *domain.VerificationResult
}

// Write saves r as an XLSX workbook at path.
func Write(path string, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeRows(f, SheetSummary, header, []any{"Field", "Value"}, summaryRows(r)); err != nil {
		return err
	}

	copied := make([][]any, 0, len(r.Stats.CopiedList))
	for _, path := range r.Stats.CopiedList {
		copied = append(copied, []any{path})
	}
	if err := addSheet(f, SheetCopied, header, []any{"Path"}, copied); err != nil {
		return err
	}

	failed := make([][]any, 0, len(r.Stats.FailedList))
	for _, failure := range r.Stats.FailedList {
		failed = append(failed, []any{failure.Path, failure.Message})
	}
	if err := addSheet(f, SheetFailed, header, []any{"Path", "Error"}, failed); err != nil {
		return err
	}

	if r.Verification != nil {
		mismatches := make([][]any, 0, len(r.Verification.CorruptedList))
		for _, m := range r.Verification.CorruptedList {
			mismatches = append(mismatches, []any{m.Path, m.Reason})
		}
		if err := addSheet(f, SheetVerification, header, []any{"Path", "Reason"}, mismatches); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func summaryRows(r Report) [][]any {
	s := r.Stats
	rows := [][]any{
		{"Job ID", s.JobID},
		{"Source", r.Source},
		{"Destination", r.Destination},
		{"Started", formatTime(s.StartedAt)},
		{"Finished", formatTime(s.FinishedAt)},
		{"Elapsed", s.Elapsed().Round(time.Millisecond).String()},
		{"Total files", s.TotalFiles},
		{"Copied files", s.CopiedFiles},
		{"Failed files", s.FailedFiles},
		{"Total size", domain.FormatSize(s.TotalSize)},
		{"Cancelled", s.Cancelled},
	}
	if v := r.Verification; v != nil {
		rows = append(rows,
			[]any{"Algorithm", r.Algorithm},
			[]any{"Verified files", v.Verified},
			[]any{"Corrupted files", v.Corrupted},
		)
	}
	return rows
}

func addSheet(f *excelize.File, name string, header int, columns []any, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	return writeRows(f, name, header, columns, rows)
}

func writeRows(f *excelize.File, sheet string, header int, columns []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
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

	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 48)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
