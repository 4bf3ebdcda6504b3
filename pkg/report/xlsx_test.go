package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/charlymoron/trapflow/internal/model"
)

func TestWriteRunReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xlsx")
	summary := model.RunSummary{
		RunID:          "run-1",
		Success:        true,
		Message:        "imported 3 event(s) from 2 file(s)",
		FilesProcessed: 2,
		TotalEvents:    3,
		TotalErrors:    1,
		Elapsed:        1500 * time.Millisecond,
		Files: []model.FileResult{
			{Filename: "a.txt", EventCount: 2, SQLFile: "/out/InsertSQLEventos-a.txt.sql"},
			{Filename: "b.txt", EventCount: 1, ErrorCount: 1},
			{Filename: "c.txt", Skipped: true},
		},
	}

	if err := WriteRunReport(path, summary); err != nil {
		t.Fatalf("WriteRunReport: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening report: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("got sheets %v, want Summary and Files", sheets)
	}

	runID, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatal(err)
	}
	if runID != "run-1" {
		t.Errorf("Summary!B1 = %q, want run id", runID)
	}

	rows, err := f.GetRows("Files")
	if err != nil {
		t.Fatal(err)
	}
	// header plus one row per file
	if len(rows) != 4 {
		t.Fatalf("Files sheet has %d rows, want 4", len(rows))
	}
	if rows[3][1] != "skipped" {
		t.Errorf("skipped file status = %q", rows[3][1])
	}
}
