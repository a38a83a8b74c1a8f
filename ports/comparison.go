package ports

import (
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
)

// TwoSampleTest scores the agreement of two binned distributions. The result
// is a p-value-like statistic in [0,1]; 0 is a valid outcome (for example an
// empty input) and is floored downstream.
type TwoSampleTest interface {
	Name() string
	Test(a, b *histogram.Histogram) (float64, error)
}

// FitWindow bounds the x range of a fit.
type FitWindow struct {
	Low  float64
	High float64
}

// Contains reports whether x lies inside the window, bounds included.
func (w FitWindow) Contains(x float64) bool { return x >= w.Low && x <= w.High }

// FitResult is the outcome of one Gaussian fit
type FitResult struct {
	Params    qa.GaussParams
	Errors    qa.GaussParams
	Chi2      float64
	NDF       int
	Converged bool
	Status    string
}

// GaussianFitter fits constant*exp(-0.5*((x-mean)/sigma)^2) to a 1D
// histogram, starting from seed and restricted to window.
type GaussianFitter interface {
	Fit(slice *histogram.Histogram, seed qa.GaussParams, window FitWindow) (FitResult, error)
}
