// Package ratio estimates per-bin binomial efficiencies with the Wilson
// score interval.
package ratio

import (
	"math"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
)

// Result holds the estimate of every bin, in flat bin order.
type Result struct {
	Name string
	Axes []histogram.Axis
	Bins []qa.RatioBin
}

// Compute estimates pass/trials for every bin. Both histograms must have the
// same dimension and bin count on every axis; the output keeps the edges of
// pass. Bins without trials follow policy.
func Compute(pass, trials *histogram.Histogram, policy qa.ZeroBinPolicy) (*Result, error) {
	if pass == nil {
		return nil, core.NewMissingHistogramError("pass")
	}
	if trials == nil {
		return nil, core.NewMissingHistogramError("trials")
	}
	if err := pass.Validate(); err != nil {
		return nil, err
	}
	if err := trials.Validate(); err != nil {
		return nil, err
	}
	if err := pass.SameShape(trials); err != nil {
		return nil, err
	}

	res := &Result{
		Name: pass.Name + "_Ratio",
		Axes: make([]histogram.Axis, len(pass.Axes)),
		Bins: make([]qa.RatioBin, pass.Len()),
	}
	for i, a := range pass.Axes {
		res.Axes[i] = histogram.NewVariableAxis(a.Edges)
	}

	for i := range res.Bins {
		ix, iy, iz := pass.Coords(i)
		k, n := pass.Contents[i], trials.Contents[i]
		bin := qa.RatioBin{IX: ix, IY: iy, IZ: iz, Pass: k, Trials: n}
		switch {
		case n > 0:
			bin.Ratio, bin.Error = WilsonScore(k, n, 1)
		case policy == qa.FillDefault:
			bin.Ratio, bin.Error = 0.5, 0.5
		default:
			// an element-wise division leaves empty-by-empty bins at zero
			bin.Ratio, bin.Error = 0, 0
		}
		res.Bins[i] = bin
	}
	return res, nil
}

// WilsonScore returns the centre and half-width of the Wilson score interval
// for k successes out of n > 0 trials at z standard deviations.
func WilsonScore(k, n, z float64) (center, halfWidth float64) {
	p := k / n
	z2n := z * z / n
	den := 1 + z2n
	center = (p + z2n/2) / den
	halfWidth = z * math.Sqrt(p*(1-p)/n+z2n/(4*n)) / den
	return center, halfWidth
}

// Histogram renders the estimate as a histogram with identical edges. An
// empty name uses Result.Name.
func (r *Result) Histogram(name string) *histogram.Histogram {
	if name == "" {
		name = r.Name
	}
	axes := make([]histogram.Axis, len(r.Axes))
	for i, a := range r.Axes {
		axes[i] = histogram.NewVariableAxis(a.Edges)
	}
	h := histogram.New(name, axes...)
	for i, b := range r.Bins {
		h.Contents[i] = b.Ratio
		h.SetError(b.IX, b.IY, b.IZ, b.Error)
	}
	return h
}
