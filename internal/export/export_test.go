package export

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
)

func sampleRun() *qa.RunRecord {
	return &qa.RunRecord{
		ID:    core.NewRunID(),
		Label: "nightly tracking",
		Combined: qa.CombinedStatistic{
			Chi2: 2.772588722239781, NDF: 4, PValue: 0.596575, Count: 2,
		},
		Comparisons: []qa.ComparisonRecord{
			{Seq: 0, Name: "h_QAG4SimulationTracking_pT", PValue: 0.5, Verdict: qa.VerdictGood, Tested: true},
			{Seq: 1, Name: "h_nhits", PValue: 0.5, Verdict: qa.VerdictGood, Tested: true},
			{Seq: 2, Name: "h_no_reference", PValue: math.NaN(), Verdict: qa.VerdictNone},
		},
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatCSVResolution(t *testing.T) {
	axis := histogram.NewUniformAxis(3, 0, 3)
	points := []qa.ResolutionPoint{
		{Bin: 0, X: 0.5, Value: 0.1, Error: 0.01},
		{Bin: 2, X: 2.5, Value: 0.123456789, Error: 0.02},
	}

	central, errorbar := FormatCSV(ResolutionColumns(points, axis))

	assert.Equal(t, "0 - 1, 2 - 3\n0.1, 0.123457\n", central)
	assert.Equal(t, "0 - 1, 2 - 3\n0.01, 0.02\n", errorbar)
}

func TestFormatCSVProfileUsesSigmaAsErrorBar(t *testing.T) {
	points := []qa.ProfilePoint{
		{Bin: 0, X: 12.5, HalfWidth: 2.5, Mean: 1.01, MeanError: 0.001, Sigma: 0.05, SigmaError: 0.002},
	}

	central, errorbar := FormatCSV(ProfileColumns(points))

	assert.Equal(t, "10 - 15\n1.01\n", central)
	assert.Equal(t, "10 - 15\n0.05\n", errorbar)
	assert.False(t, strings.Contains(central, ", \n"), "no separator after the last entry")
}

func TestWritePointsCSV(t *testing.T) {
	base := filepath.Join(t.TempDir(), "h_resolution")
	cols := []Column{{X: 1, HalfWidth: 0.5, Value: 2, Error: 0.1}}

	require.NoError(t, WritePointsCSV(base, cols))

	central, err := os.ReadFile(base + "_central_value.csv")
	require.NoError(t, err)
	assert.Equal(t, "0.5 - 1.5\n2\n", string(central))

	errorbar, err := os.ReadFile(base + "_errorbar.csv")
	require.NoError(t, err)
	assert.Equal(t, "0.5 - 1.5\n0.1\n", string(errorbar))

	err = WritePointsCSV(filepath.Join(t.TempDir(), "missing", "dir", "x"), cols)
	assert.Error(t, err)
}

func TestWriteWorkbook(t *testing.T) {
	run := sampleRun()
	path := filepath.Join(t.TempDir(), "run.xlsx")

	require.NoError(t, WriteWorkbook(path, run))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "PValues"}, f.GetSheetList())

	label, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "nightly tracking", label)

	ndf, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "4", ndf)

	rows, err := f.GetRows("PValues")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Seq", "Name", "p-Value", "Verdict"}, rows[0])
	assert.Equal(t, "h_nhits", rows[2][1])
	assert.Equal(t, "none", rows[3][3])
}

func TestStreamWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, StreamWorkbook(&buf, sampleRun()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	p, err := f.GetCellValue("PValues", "C2")
	require.NoError(t, err)
	assert.NotEmpty(t, p)
}

func TestRenderHTMLReport(t *testing.T) {
	run := sampleRun()

	md := MarkdownReport(run)
	assert.Contains(t, md, "combined Chi2/nDoF = 2.77259 / 4, and combined __p-Value = 0.596575__")
	assert.Contains(t, md, "| 2 | h\\_no\\_reference | n/a | none |")

	page := string(RenderHTMLReport(run))
	assert.Contains(t, page, "<title>nightly tracking</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<strong>p-Value = 0.596575</strong>")
	assert.Contains(t, page, "h_QAG4SimulationTracking_pT")
	assert.Contains(t, page, "<td>good</td>")
}

func TestRenderHTMLReportEscapesManifestText(t *testing.T) {
	run := sampleRun()
	run.Label = "<img src=x onerror=alert(1)>"
	run.Comparisons[0].Name = "<script>alert(1)</script>"

	md := MarkdownReport(run)
	assert.Contains(t, md, `| 0 | \<script\>alert(1)\</script\> | 0.500 | good |`)

	page := string(RenderHTMLReport(run))
	assert.NotContains(t, page, "<script>")
	assert.NotContains(t, page, "<img")
	assert.Contains(t, page, "&lt;script&gt;alert")
	assert.Contains(t, page, "<title>&lt;img src=x onerror=alert")
}
