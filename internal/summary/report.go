package summary

import (
	"fmt"
	"os"

	"github.com/montanaflynn/stats"

	"qacompare/domain/qa"
	"qacompare/internal/errors"
)

// SummaryText renders the one-line run summary.
func SummaryText(c qa.CombinedStatistic) string {
	return fmt.Sprintf("combined Chi2/nDoF = %.6g / %d, and combined __p-Value = %.6g__", c.Chi2, c.NDF, c.PValue)
}

// WriteSummary writes the run summary line to path, replacing any previous file.
func WriteSummary(path string, c qa.CombinedStatistic) error {
	if err := os.WriteFile(path, []byte(SummaryText(c)+"\n"), 0o644); err != nil {
		return errors.ExportFailed(path, err)
	}
	return nil
}

// Description holds descriptive statistics of the stored p-values.
type Description struct {
	Count       int     `json:"count"`
	Min         float64 `json:"min"`
	Median      float64 `json:"median"`
	Q25         float64 `json:"q25"`
	BelowMargin int     `json:"below_margin"`
}

// Describe summarises the stored p-values. BelowMargin counts the values
// graded bad by qa.ClassifyPValue.
func (a *Accumulator) Describe() (Description, error) {
	return Describe(a.PValues())
}

// Describe summarises an arbitrary list of p-values.
func Describe(pvalues []float64) (Description, error) {
	desc := Description{Count: len(pvalues)}
	if len(pvalues) == 0 {
		return desc, errors.InvalidInput("no p-values to describe")
	}

	data := stats.Float64Data(pvalues)
	var err error
	if desc.Min, err = data.Min(); err != nil {
		return desc, err
	}
	if desc.Median, err = data.Median(); err != nil {
		return desc, err
	}
	if desc.Q25, err = data.PercentileNearestRank(25); err != nil {
		return desc, err
	}
	for _, p := range pvalues {
		if qa.ClassifyPValue(p) == qa.VerdictBad {
			desc.BelowMargin++
		}
	}
	return desc, nil
}
