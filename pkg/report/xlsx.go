// Package report writes the optional XLSX run report handed to the
// operations team alongside the SQL scripts.
package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/charlymoron/trapflow/internal/model"
	trferrors "github.com/charlymoron/trapflow/pkg/errors"
)

const (
	summarySheet = "Summary"
	filesSheet   = "Files"
)

// WriteRunReport writes the workbook for one batch run. The Summary
// sheet carries the run totals, the Files sheet one row per input file.
func WriteRunReport(path string, s model.RunSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, s); err != nil {
		return err
	}
	if err := writeFilesSheet(f, s); err != nil {
		return err
	}

	// drop the default sheet excelize creates
	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to shape report workbook")
	}

	if err := f.SaveAs(path); err != nil {
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to save run report").
			WithContext("path", path)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s model.RunSummary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to create summary sheet")
	}

	rows := [][]interface{}{
		{"Run", s.RunID},
		{"Result", resultLabel(s.Success)},
		{"Message", s.Message},
		{"Files processed", s.FilesProcessed},
		{"Files skipped", s.FilesSkipped},
		{"Files failed", s.FilesFailed},
		{"Events imported", s.TotalEvents},
		{"Lines rejected", s.TotalErrors},
		{"Elapsed", s.Elapsed.String()},
	}
	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to write summary row")
		}
	}
	return nil
}

func writeFilesSheet(f *excelize.File, s model.RunSummary) error {
	if _, err := f.NewSheet(filesSheet); err != nil {
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to create files sheet")
	}

	header := []interface{}{"File", "Status", "Events", "Errors", "Elapsed", "SQL script", "Error report"}
	if err := f.SetSheetRow(filesSheet, "A1", &header); err != nil {
		return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to write files header")
	}

	for i, r := range s.Files {
		row := []interface{}{
			r.Filename,
			fileStatus(r),
			r.EventCount,
			r.ErrorCount,
			r.Elapsed.String(),
			r.SQLFile,
			r.ErrorFile,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(filesSheet, cell, &row); err != nil {
			return trferrors.Wrap(err, trferrors.CodeWriteFailed, "failed to write file row")
		}
	}
	return nil
}

func resultLabel(success bool) string {
	if success {
		return "OK"
	}
	return "INCOMPLETE"
}

func fileStatus(r model.FileResult) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Failed:
		return "failed: " + r.FailReason
	default:
		return "processed"
	}
}
