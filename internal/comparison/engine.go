// Package comparison runs two-sample tests between a new and a reference
// distribution and feeds the outcome to the run accumulator.
package comparison

import (
	"fmt"
	"math"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/internal/summary"
	"qacompare/ports"
)

// Options controls a single comparison
type Options struct {
	PerformTest bool
}

// DefaultOptions runs the test.
func DefaultOptions() Options {
	return Options{PerformTest: true}
}

// Result is the outcome of one comparison. Statistic is NaN when no test ran.
type Result struct {
	Statistic float64
	Tested    bool
	Verdict   qa.Verdict
	Label     string
}

// Engine compares distributions with one two-sample test and pushes every
// computed statistic to its accumulator.
type Engine struct {
	test   ports.TwoSampleTest
	acc    *summary.Accumulator
	logger *internal.Logger
}

// NewEngine creates an engine. A nil test selects the Kolmogorov test.
func NewEngine(test ports.TwoSampleTest, acc *summary.Accumulator, logger *internal.Logger) *Engine {
	if test == nil {
		test = NewKolmogorovTest()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{test: test, acc: acc, logger: logger.With("comparison")}
}

// Accumulator returns the accumulator the engine pushes to.
func (e *Engine) Accumulator() *summary.Accumulator { return e.acc }

// Compare tests newDist against refDist. A missing newDist is an error; a
// missing refDist, or PerformTest false, yields NaN without touching the
// accumulator. Otherwise the statistic is pushed exactly once.
func (e *Engine) Compare(newDist, refDist *histogram.Histogram, opts Options) (Result, error) {
	res := Result{Statistic: math.NaN(), Verdict: qa.VerdictNone}
	if newDist == nil {
		return res, core.NewMissingHistogramError("new")
	}
	if refDist == nil {
		e.logger.Debug("%s has no reference, skipping test", newDist.Name)
		return res, nil
	}
	if !opts.PerformTest {
		res.Label = "New Result"
		return res, nil
	}

	p, err := e.test.Test(newDist, refDist)
	if err != nil {
		return res, fmt.Errorf("compare %s: %w", newDist.Name, err)
	}

	res.Tested = true
	res.Statistic = p
	if e.acc != nil {
		e.acc.PushResult(p)
	}
	res.Verdict = qa.ClassifyPValue(p)
	res.Label = fmt.Sprintf("New: %s P=%.3f", e.test.Name(), p)
	e.logger.Debug("%s: %s p=%g (%s)", newDist.Name, e.test.Name(), p, res.Verdict)
	return res, nil
}
