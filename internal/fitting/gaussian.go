// Package fitting provides the least-squares Gaussian fitter used by the
// resolution and profile slicers.
package fitting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
	"qacompare/ports"
)

const (
	minFitPoints         = 3
	defaultMaxIterations = 5000
)

// LeastSquares minimises the chi-square between a histogram and a Gaussian.
type LeastSquares struct {
	MaxIterations int
}

// NewLeastSquares creates a fitter with default limits
func NewLeastSquares() *LeastSquares {
	return &LeastSquares{MaxIterations: defaultMaxIterations}
}

var _ ports.GaussianFitter = (*LeastSquares)(nil)

type fitPoint struct {
	x, y, err float64
}

// Fit fits seed-started parameters to the bins of slice whose centre lies in
// window and whose content is positive.
func (f *LeastSquares) Fit(slice *histogram.Histogram, seed qa.GaussParams, window ports.FitWindow) (ports.FitResult, error) {
	var res ports.FitResult
	if slice == nil {
		return res, core.NewMissingHistogramError("slice")
	}
	if slice.Dim() != 1 {
		return res, core.NewInvalidHistogramError(slice.Name, fmt.Sprintf("cannot fit a %dD histogram", slice.Dim()))
	}

	points := collectPoints(slice, window)
	if len(points) < minFitPoints {
		return res, core.NewFitError(fmt.Sprintf("%s: %d usable bins in [%g, %g]", slice.Name, len(points), window.Low, window.High))
	}

	scale := seed
	if !(scale.Sigma() > 0) || math.IsInf(scale.Sigma(), 0) {
		return res, core.NewFitError(fmt.Sprintf("%s: seed sigma %g", slice.Name, scale.Sigma()))
	}
	if !(scale.Constant() > 0) {
		scale[qa.ParamConstant] = maxContent(points)
	}

	// Parameters are scaled so the optimizer starts from (1, 0, 1).
	toParams := func(u []float64) qa.GaussParams {
		return qa.GaussParams{
			scale.Constant() * u[0],
			scale.Mean() + scale.Sigma()*u[1],
			scale.Sigma() * u[2],
		}
	}
	chi2 := func(u []float64) float64 {
		g := toParams(u)
		var sum float64
		for _, p := range points {
			r := (p.y - g.Eval(p.x)) / p.err
			sum += r * r
		}
		return sum
	}

	maxIter := f.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	problem := optimize.Problem{Func: chi2}
	settings := &optimize.Settings{MajorIterations: maxIter}
	result, err := optimize.Minimize(problem, []float64{1, 0, 1}, settings, &optimize.NelderMead{})
	if result == nil {
		return res, core.NewFitError(fmt.Sprintf("%s: %v", slice.Name, err))
	}

	res.Params = toParams(result.X)
	res.Params[qa.ParamSigma] = math.Abs(res.Params.Sigma())
	res.Chi2 = result.F
	res.NDF = len(points) - minFitPoints
	res.Status = result.Status.String()
	res.Converged = err == nil && !result.Status.Early()

	uErr, ok := paramErrors(chi2, result.X)
	if !ok {
		res.Converged = false
		res.Status += "; covariance not positive definite"
	}
	res.Errors = qa.GaussParams{
		scale.Constant() * uErr[0],
		scale.Sigma() * uErr[1],
		scale.Sigma() * uErr[2],
	}
	return res, nil
}

// paramErrors returns the standard errors at x from the inverse Hessian of
// chi2/2.
func paramErrors(chi2 func([]float64) float64, x []float64) ([3]float64, bool) {
	nan := [3]float64{math.NaN(), math.NaN(), math.NaN()}

	var hess mat.SymDense
	half := func(u []float64) float64 { return chi2(u) / 2 }
	fd.Hessian(&hess, half, x, &fd.Settings{Formula: fd.Central})

	var chol mat.Cholesky
	if ok := chol.Factorize(&hess); !ok {
		return nan, false
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nan, false
	}

	var out [3]float64
	for i := range out {
		v := cov.At(i, i)
		if v < 0 {
			return nan, false
		}
		out[i] = math.Sqrt(v)
	}
	return out, true
}

func collectPoints(h *histogram.Histogram, window ports.FitWindow) []fitPoint {
	axis := h.Axes[0]
	points := make([]fitPoint, 0, axis.NBins())
	for i := 0; i < axis.NBins(); i++ {
		x := axis.Center(i)
		y := h.Contents[i]
		if !window.Contains(x) || !(y > 0) {
			continue
		}
		e := h.ErrorAt(i, 0, 0)
		if !(e > 0) {
			e = math.Sqrt(y)
		}
		points = append(points, fitPoint{x: x, y: y, err: e})
	}
	return points
}

func maxContent(points []fitPoint) float64 {
	m := 0.0
	for _, p := range points {
		m = math.Max(m, p.y)
	}
	return m
}
