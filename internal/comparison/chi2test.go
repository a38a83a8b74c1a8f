package comparison

import (
	"gonum.org/v1/gonum/stat/distuv"

	"qacompare/domain/histogram"
)

// Chi2Test is Pearson's homogeneity test for two unweighted histograms.
type Chi2Test struct{}

// NewChi2Test creates a new chi-square homogeneity test
func NewChi2Test() *Chi2Test {
	return &Chi2Test{}
}

// Name returns the test label used in comparison legends
func (t *Chi2Test) Name() string {
	return "Chi2-Test"
}

// Test returns the chi-square probability of the homogeneity hypothesis.
// Bins empty in both histograms do not count towards the degrees of freedom.
func (t *Chi2Test) Test(a, b *histogram.Histogram) (float64, error) {
	chi2, ndf, err := t.Statistic(a, b)
	if err != nil {
		return 0, err
	}
	if ndf < 0 {
		return 0, nil
	}
	if ndf == 0 || chi2 == 0 {
		return 1, nil
	}
	return distuv.ChiSquared{K: float64(ndf)}.Survival(chi2), nil
}

// Statistic returns chi2 and the degrees of freedom. ndf is -1 when either
// histogram is empty.
func (t *Chi2Test) Statistic(a, b *histogram.Histogram) (float64, int, error) {
	if err := checkPair(a, b); err != nil {
		return 0, 0, err
	}
	if _, err := effectiveEntries(a); err != nil {
		return 0, 0, err
	}
	if _, err := effectiveEntries(b); err != nil {
		return 0, 0, err
	}

	sum1, sum2 := a.Sum(), b.Sum()
	if sum1 == 0 || sum2 == 0 {
		return 0, -1, nil
	}

	var chi2 float64
	nonEmpty := 0
	for i := range a.Contents {
		n1, n2 := a.Contents[i], b.Contents[i]
		if n1+n2 == 0 {
			continue
		}
		nonEmpty++
		diff := sum2*n1 - sum1*n2
		chi2 += diff * diff / (n1 + n2)
	}
	return chi2 / (sum1 * sum2), nonEmpty - 1, nil
}
