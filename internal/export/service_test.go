package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fineprocessing/fines-processor/internal/fines"
)

type fakeLister struct {
	recs []fines.Record
	from *time.Time
	to   *time.Time
}

func (f *fakeLister) ListProcessed(_ context.Context, from, to *time.Time) ([]fines.Record, error) {
	f.from, f.to = from, to
	return f.recs, nil
}

func strPtr(s string) *string { return &s }

func TestExportFinesXLSX(t *testing.T) {
	amount := 90.0
	processedAt := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	lister := &fakeLister{recs: []fines.Record{{
		ID:            "fine-1",
		FileName:      strPtr("a.pdf"),
		Status:        "processed",
		FineNumber:    strPtr("1234567890"),
		FineAmount:    &amount,
		FineDate:      strPtr("2024-03-05"),
		Location:      strPtr("Paris, 75, FRANCE"),
		ViolationType: strPtr("excès de vitesse"),
		ProcessedAt:   &processedAt,
	}}}

	data, err := NewService(lister, nil).ExportFinesXLSX(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	rows, err := f.GetRows("Fines")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][0] != "1234567890" || rows[1][1] != "2024-03-05" {
		t.Errorf("unexpected data row %v", rows[1])
	}
}

func TestExportFinesXLSX_DateWindow(t *testing.T) {
	lister := &fakeLister{}
	from := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC)

	if _, err := NewService(lister, nil).ExportFinesXLSX(context.Background(), &from, &to); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.from == nil || !lister.from.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from should snap to start of day, got %v", lister.from)
	}
	if lister.to == nil || lister.to.Day() != 31 {
		t.Errorf("to should stay on the same day, got %v", lister.to)
	}
}
