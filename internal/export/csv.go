// Package export writes run and fit artifacts: the point CSV pair, the run
// workbook and the HTML run report.
package export

import (
	"fmt"
	"os"
	"strings"

	"qacompare/domain/histogram"
	"qacompare/domain/qa"
	"qacompare/internal/errors"
)

const (
	centralSuffix  = "_central_value.csv"
	errorbarSuffix = "_errorbar.csv"
	csvSeparator   = ", "
)

// Column is one exported point: an x range with a central value and an
// error bar.
type Column struct {
	X         float64
	HalfWidth float64
	Value     float64
	Error     float64
}

// ResolutionColumns converts resolution points, taking each half-width from
// the x axis they were fitted on.
func ResolutionColumns(points []qa.ResolutionPoint, xAxis histogram.Axis) []Column {
	cols := make([]Column, len(points))
	for i, p := range points {
		cols[i] = Column{X: p.X, Value: p.Value, Error: p.Error}
		if p.Bin >= 0 && p.Bin < xAxis.NBins() {
			cols[i].HalfWidth = xAxis.Width(p.Bin) / 2
		}
	}
	return cols
}

// ProfileColumns converts profile points. The error bar is the fitted sigma,
// so the band shows the spread around the mean.
func ProfileColumns(points []qa.ProfilePoint) []Column {
	cols := make([]Column, len(points))
	for i, p := range points {
		cols[i] = Column{X: p.X, HalfWidth: p.HalfWidth, Value: p.Mean, Error: p.Sigma}
	}
	return cols
}

// FormatCSV renders the two files of the point export: header plus central
// values, and header plus errors.
func FormatCSV(cols []Column) (central, errorbar string) {
	header := make([]string, len(cols))
	values := make([]string, len(cols))
	errs := make([]string, len(cols))
	for i, c := range cols {
		header[i] = fmt.Sprintf("%.3g - %.3g", c.X-c.HalfWidth, c.X+c.HalfWidth)
		values[i] = fmt.Sprintf("%.6g", c.Value)
		errs[i] = fmt.Sprintf("%.6g", c.Error)
	}
	head := strings.Join(header, csvSeparator)
	central = head + "\n" + strings.Join(values, csvSeparator) + "\n"
	errorbar = head + "\n" + strings.Join(errs, csvSeparator) + "\n"
	return central, errorbar
}

// WritePointsCSV writes <base>_central_value.csv and <base>_errorbar.csv.
func WritePointsCSV(base string, cols []Column) error {
	central, errorbar := FormatCSV(cols)
	if err := os.WriteFile(base+centralSuffix, []byte(central), 0o644); err != nil {
		return errors.ExportFailed(base+centralSuffix, err)
	}
	if err := os.WriteFile(base+errorbarSuffix, []byte(errorbar), 0o644); err != nil {
		return errors.ExportFailed(base+errorbarSuffix, err)
	}
	return nil
}
