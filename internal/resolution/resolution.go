package resolution

import (
	"fmt"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
)

// FitResolution fits every populated y-slice of h2 and reports opts.Param
// per x-bin, in x order. Slices below the statistics gate are absent.
func FitResolution(h2 *histogram.Histogram, opts Options) ([]qa.ResolutionPoint, error) {
	if !opts.Param.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidParam, int(opts.Param))
	}
	opts = opts.withDefaults()

	fits, err := fitSlices(h2, opts)
	if err != nil {
		return nil, err
	}

	points := make([]qa.ResolutionPoint, 0, len(fits))
	for _, fit := range fits {
		value := fit.result.Params[opts.Param]
		fitErr := fit.result.Errors[opts.Param]
		if opts.NormalizeByMean {
			norm := fit.result.Params.Mean()
			if norm == 0 {
				opts.Logger.Warn("x-bin %d: fitted mean is zero, cannot normalise", fit.bin)
				continue
			}
			value /= norm
			fitErr /= norm
		}
		points = append(points, qa.ResolutionPoint{Bin: fit.bin, X: fit.center, Value: value, Error: fitErr})
	}
	return points, nil
}

// FitResolutionHist returns the FitResolution values as a histogram over the
// x axis of h2. Skipped bins stay at 0 ± 0.
func FitResolutionHist(h2 *histogram.Histogram, opts Options) (*histogram.Histogram, error) {
	points, err := FitResolution(h2, opts)
	if err != nil {
		return nil, err
	}

	out := histogram.New(h2.Name+"_FitResolution", histogram.NewVariableAxis(h2.Axes[0].Edges))
	out.Errors = make([]float64, out.Len())
	for _, p := range points {
		out.Set(p.Bin, 0, 0, p.Value)
		out.SetError(p.Bin, 0, 0, p.Error)
	}
	return out, nil
}

// FitProfile fits every populated y-slice of h2 and reports the fitted mean
// and sigma with their errors per x-bin. Param and NormalizeByMean are
// ignored.
func FitProfile(h2 *histogram.Histogram, opts Options) ([]qa.ProfilePoint, error) {
	opts = opts.withDefaults()

	fits, err := fitSlices(h2, opts)
	if err != nil {
		return nil, err
	}

	points := make([]qa.ProfilePoint, len(fits))
	for i, fit := range fits {
		points[i] = qa.ProfilePoint{
			Bin:        fit.bin,
			X:          fit.center,
			HalfWidth:  fit.halfWidth,
			Mean:       fit.result.Params.Mean(),
			MeanError:  fit.result.Errors.Mean(),
			Sigma:      fit.result.Params.Sigma(),
			SigmaError: fit.result.Errors.Sigma(),
		}
	}
	return points, nil
}
