package qa

import (
	"fmt"
	"math"
	"strings"
)

// PValueFloor replaces non-positive statistics pushed to the accumulator.
var PValueFloor = math.Exp(-15)

// MinSliceWeight is the statistics gate of the slice fitters: y-slices whose
// summed weight is below it are not fitted.
const MinSliceWeight = 10.0

// FitWindowSigmas is the half-width of the Gaussian fit window in units of
// the seed sigma.
const FitWindowSigmas = 4.0

// CombinedStatistic is Fisher's combination of all p-values of one run.
type CombinedStatistic struct {
	Chi2   float64 `json:"chi2" db:"chi2"`
	NDF    int     `json:"ndf" db:"ndf"`
	PValue float64 `json:"p_value" db:"p_value"`
	Count  int     `json:"n_tests" db:"n_tests"`
}

// ZeroBinPolicy selects the ratio reported for bins with no trials.
type ZeroBinPolicy int

const (
	// NaiveDivide reports 0 ± 0, what an element-wise division of two
	// empty bins yields.
	NaiveDivide ZeroBinPolicy = iota
	// FillDefault reports the maximally uncertain 0.5 ± 0.5.
	FillDefault
)

func (p ZeroBinPolicy) String() string {
	switch p {
	case NaiveDivide:
		return "naive"
	case FillDefault:
		return "fill"
	default:
		return fmt.Sprintf("ZeroBinPolicy(%d)", int(p))
	}
}

// RatioBin is one bin of a binomial ratio estimate. IX, IY and IZ are 0-based
// bin indices; unused axes are 0.
type RatioBin struct {
	IX     int     `json:"ix"`
	IY     int     `json:"iy"`
	IZ     int     `json:"iz"`
	Pass   float64 `json:"pass"`
	Trials float64 `json:"trials"`
	Ratio  float64 `json:"ratio"`
	Error  float64 `json:"error"`
}

// FitParam indexes the parameters of a Gaussian constant*exp(-0.5*((x-mean)/sigma)^2).
type FitParam int

const (
	ParamConstant FitParam = 0
	ParamMean     FitParam = 1
	ParamSigma    FitParam = 2
)

func (p FitParam) Valid() bool { return p >= ParamConstant && p <= ParamSigma }

func (p FitParam) String() string {
	switch p {
	case ParamConstant:
		return "constant"
	case ParamMean:
		return "mean"
	case ParamSigma:
		return "sigma"
	default:
		return fmt.Sprintf("FitParam(%d)", int(p))
	}
}

// ParseFitParam accepts a parameter name or its index.
func ParseFitParam(s string) (FitParam, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "constant", "0":
		return ParamConstant, nil
	case "mean", "1":
		return ParamMean, nil
	case "", "sigma", "2":
		return ParamSigma, nil
	default:
		return ParamSigma, fmt.Errorf("unknown fit parameter %q (expected constant|mean|sigma)", s)
	}
}

// GaussParams holds constant, mean and sigma, indexed by FitParam.
type GaussParams [3]float64

func (g GaussParams) Constant() float64 { return g[ParamConstant] }
func (g GaussParams) Mean() float64     { return g[ParamMean] }
func (g GaussParams) Sigma() float64    { return g[ParamSigma] }

// Eval returns the Gaussian value at x.
func (g GaussParams) Eval(x float64) float64 {
	z := (x - g.Mean()) / g.Sigma()
	return g.Constant() * math.Exp(-0.5*z*z)
}

// ResolutionPoint is the requested fit parameter of one x-slice.
type ResolutionPoint struct {
	Bin   int     `json:"bin"`
	X     float64 `json:"x"`
	Value float64 `json:"value"`
	Error float64 `json:"error"`
}

// ProfilePoint carries both fitted mean and sigma of one x-slice.
type ProfilePoint struct {
	Bin        int     `json:"bin"`
	X          float64 `json:"x"`
	HalfWidth  float64 `json:"half_width"`
	Mean       float64 `json:"mean"`
	MeanError  float64 `json:"mean_error"`
	Sigma      float64 `json:"sigma"`
	SigmaError float64 `json:"sigma_error"`
}

// ConvergencePolicy decides what happens to a slice whose fit did not converge.
type ConvergencePolicy int

const (
	// WarnUnconverged keeps the estimate and logs a warning.
	WarnUnconverged ConvergencePolicy = iota
	// KeepUnconverged keeps the estimate silently.
	KeepUnconverged
	// SkipUnconverged drops the slice as if it had too few entries.
	SkipUnconverged
)

// ParseConvergencePolicy accepts keep, warn or skip.
func ParseConvergencePolicy(s string) (ConvergencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return WarnUnconverged, nil
	case "keep":
		return KeepUnconverged, nil
	case "skip":
		return SkipUnconverged, nil
	default:
		return WarnUnconverged, fmt.Errorf("unknown convergence policy %q (expected keep|warn|skip)", s)
	}
}

func (p ConvergencePolicy) String() string {
	switch p {
	case WarnUnconverged:
		return "warn"
	case KeepUnconverged:
		return "keep"
	case SkipUnconverged:
		return "skip"
	default:
		return fmt.Sprintf("ConvergencePolicy(%d)", int(p))
	}
}

// Verdict grades a comparison p-value.
type Verdict string

const (
	VerdictNone     Verdict = "none"
	VerdictPerfect  Verdict = "perfect"
	VerdictGood     Verdict = "good"
	VerdictMarginal Verdict = "marginal"
	VerdictBad      Verdict = "bad"
)

// ClassifyPValue maps p to the grade shown next to a comparison: identical
// distributions (p >= 1), good (>= 0.2), marginal (>= 0.05), otherwise bad.
// NaN means no test was run.
func ClassifyPValue(p float64) Verdict {
	switch {
	case math.IsNaN(p):
		return VerdictNone
	case p >= 1:
		return VerdictPerfect
	case p >= 0.2:
		return VerdictGood
	case p >= 0.05:
		return VerdictMarginal
	default:
		return VerdictBad
	}
}
