package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fineprocessing/fines-processor/internal/fines"
)

// ProcessedLister is the read capability the export needs.
type ProcessedLister interface {
	ListProcessed(ctx context.Context, from, to *time.Time) ([]fines.Record, error)
}

// Service produces XLSX bytes for processed fines.
type Service struct {
	store  ProcessedLister
	logger *slog.Logger
}

func NewService(store ProcessedLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportFinesXLSX returns a workbook of processed fines in the optional
// processed_at window (date-only, UTC, inclusive).
func (s *Service) ExportFinesXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.store.ListProcessed(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query fines: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Fines"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Fine Number",
		"Fine Date",
		"Amount (EUR)",
		"Violation Type",
		"Location",
		"File Name",
		"Processed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, strOrEmpty(r.FineNumber))
		write(2, strOrEmpty(r.FineDate))
		if r.FineAmount != nil {
			write(3, *r.FineAmount)
		} else {
			write(3, "")
		}
		write(4, strOrEmpty(r.ViolationType))
		write(5, truncate(strOrEmpty(r.Location), 140))
		write(6, strOrEmpty(r.FileName))
		if r.ProcessedAt != nil {
			write(7, r.ProcessedAt.UTC().Format("2006-01-02 15:04:05"))
		} else {
			write(7, "")
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // fine number
	_ = f.SetColWidth(sheet, "B", "B", 12) // date
	_ = f.SetColWidth(sheet, "C", "C", 14) // amount
	_ = f.SetColWidth(sheet, "D", "D", 28) // violation
	_ = f.SetColWidth(sheet, "E", "E", 48) // location
	_ = f.SetColWidth(sheet, "F", "F", 32) // file name
	_ = f.SetColWidth(sheet, "G", "G", 20) // processed at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
