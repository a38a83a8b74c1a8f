// Package resolution fits a Gaussian to every y-slice of a 2D histogram and
// reports the fitted width (resolution) or mean and width (profile) per x-bin.
package resolution

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/internal/fitting"
	"qacompare/ports"
)

// Options configures the slice fitters
type Options struct {
	// NormalizeByMean divides resolution values and errors by the fitted mean.
	NormalizeByMean bool
	// Param selects the parameter FitResolution reports.
	Param qa.FitParam

	Fitter       ports.GaussianFitter
	// MinWeight is the smallest slice sum that is fitted. Non-positive
	// values fall back to qa.MinSliceWeight.
	MinWeight    float64
	WindowSigmas float64
	Convergence  qa.ConvergencePolicy
	Workers      int
	Logger       *internal.Logger
}

// DefaultOptions reports the mean-normalised sigma, one slice at a time.
func DefaultOptions() Options {
	return Options{
		NormalizeByMean: true,
		Param:           qa.ParamSigma,
		MinWeight:       qa.MinSliceWeight,
		WindowSigmas:    qa.FitWindowSigmas,
		Convergence:     qa.WarnUnconverged,
		Workers:         1,
	}
}

func (o Options) withDefaults() Options {
	if o.Fitter == nil {
		o.Fitter = fitting.NewLeastSquares()
	}
	if o.MinWeight <= 0 {
		o.MinWeight = qa.MinSliceWeight
	}
	if o.WindowSigmas <= 0 {
		o.WindowSigmas = qa.FitWindowSigmas
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = internal.DefaultLogger
	}
	o.Logger = o.Logger.With("resolution")
	return o
}

// sliceFit is the kept fit of one x-bin.
type sliceFit struct {
	bin       int
	center    float64
	halfWidth float64
	result    ports.FitResult
}

// fitSlices fits every x-bin of h2 that passes the statistics gate and
// returns the kept fits in bin order.
func fitSlices(h2 *histogram.Histogram, opts Options) ([]sliceFit, error) {
	if h2 == nil {
		return nil, core.NewMissingHistogramError("2D input")
	}
	if err := h2.Validate(); err != nil {
		return nil, err
	}
	profile, err := h2.ProfileX()
	if err != nil {
		return nil, err
	}

	fits := make([]*sliceFit, len(profile))
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for ix := range profile {
		g.Go(func() error {
			fit, err := fitSlice(h2, ix, profile[ix], opts)
			if err != nil {
				return err
			}
			fits[ix] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]sliceFit, 0, len(fits))
	for _, fit := range fits {
		if fit != nil {
			kept = append(kept, *fit)
		}
	}
	return kept, nil
}

// fitSlice returns nil for a slice that is skipped.
func fitSlice(h2 *histogram.Histogram, ix int, prof histogram.ProfileBin, opts Options) (*sliceFit, error) {
	slice, err := h2.ProjectionY(ix)
	if err != nil {
		return nil, err
	}
	if sum := slice.Sum(); sum < opts.MinWeight {
		opts.Logger.Trace("x-bin %d: slice weight %g below %g, skipped", ix, sum, opts.MinWeight)
		return nil, nil
	}

	seed := seedParams(slice, prof)
	window := ports.FitWindow{
		Low:  seed.Mean() - opts.WindowSigmas*seed.Sigma(),
		High: seed.Mean() + opts.WindowSigmas*seed.Sigma(),
	}

	res, err := opts.Fitter.Fit(slice, seed, window)
	if err != nil {
		if core.IsFitError(err) {
			opts.Logger.Warn("x-bin %d: %v, skipped", ix, err)
			return nil, nil
		}
		return nil, fmt.Errorf("x-bin %d: %w", ix, err)
	}

	if !res.Converged {
		switch opts.Convergence {
		case qa.SkipUnconverged:
			opts.Logger.Debug("x-bin %d: fit did not converge (%s), skipped", ix, res.Status)
			return nil, nil
		case qa.WarnUnconverged:
			opts.Logger.Warn("x-bin %d: fit did not converge (%s), keeping estimate", ix, res.Status)
		}
	}

	return &sliceFit{bin: ix, center: prof.Center, halfWidth: prof.HalfWidth, result: res}, nil
}

// seedParams starts the fit at the slice maximum with the profile mean and
// spread. A zero spread falls back to the width of the y-bin holding the mean.
func seedParams(slice *histogram.Histogram, prof histogram.ProfileBin) qa.GaussParams {
	var peak float64
	for _, v := range slice.Contents {
		peak = math.Max(peak, v)
	}

	sigma := prof.Spread
	if !(sigma > 0) {
		axis := slice.Axes[0]
		bin := axis.FindBin(prof.Mean)
		if bin < 0 {
			bin = 0
		} else if bin >= axis.NBins() {
			bin = axis.NBins() - 1
		}
		sigma = axis.Width(bin)
	}
	return qa.GaussParams{peak, prof.Mean, sigma}
}
