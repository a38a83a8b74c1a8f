package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"qacompare/domain/qa"
	"qacompare/internal/errors"
)

const (
	summarySheet = "Summary"
	pvalueSheet  = "PValues"
)

// WriteWorkbook saves the run as an xlsx workbook with a Summary sheet and
// one PValues row per comparison.
func WriteWorkbook(path string, run *qa.RunRecord) error {
	f, err := buildWorkbook(run)
	if err != nil {
		return errors.ExportFailed(path, err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return errors.ExportFailed(path, err)
	}
	return nil
}

// StreamWorkbook writes the same workbook to w.
func StreamWorkbook(w io.Writer, run *qa.RunRecord) error {
	f, err := buildWorkbook(run)
	if err != nil {
		return errors.ExportFailed("workbook", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return errors.ExportFailed("workbook", err)
	}
	return nil
}

func buildWorkbook(run *qa.RunRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	summary := [][]interface{}{
		{"Run", run.ID.String()},
		{"Label", run.Label},
		{"Created", run.CreatedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Chi2", run.Combined.Chi2},
		{"NDF", run.Combined.NDF},
		{"p-Value", run.Combined.PValue},
		{"Tests", run.Combined.Count},
		{"Fingerprint", run.Fingerprint.String()},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(pvalueSheet); err != nil {
		f.Close()
		return nil, err
	}
	rows := [][]interface{}{{"Seq", "Name", "p-Value", "Verdict"}}
	for _, c := range run.Comparisons {
		var p interface{} = c.PValue
		if !c.Tested {
			p = ""
		}
		rows = append(rows, []interface{}{c.Seq, c.Name, p, string(c.Verdict)})
	}
	if err := writeRows(f, pvalueSheet, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
