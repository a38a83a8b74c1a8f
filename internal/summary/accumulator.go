// Package summary aggregates the statistics of all comparisons of a QA run
// into Fisher's combined chi-square and p-value.
package summary

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"qacompare/domain/qa"
	"qacompare/internal"
)

// Observer is called with every stored value, after flooring.
type Observer func(p float64)

// Option configures an Accumulator
type Option func(*Accumulator)

// WithLogger sets the logger used for floor substitution warnings.
func WithLogger(logger *internal.Logger) Option {
	return func(a *Accumulator) { a.logger = logger }
}

// WithObserver registers fn to be called on every push. See PushResult for
// when observers run; they must not call back into the accumulator.
func WithObserver(fn Observer) Option {
	return func(a *Accumulator) { a.observers = append(a.observers, fn) }
}

// Accumulator collects the p-values of one run in push order.
type Accumulator struct {
	mu        sync.Mutex
	pvalues   []float64
	observers []Observer
	logger    *internal.Logger
}

// NewAccumulator creates an empty accumulator
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{logger: internal.DefaultLogger.With("summary")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PushResult stores p and returns the stored value. Non-positive and NaN
// inputs are replaced by qa.PValueFloor with a warning; a push never fails.
//
// The whole push holds the lock: the floor warning is logged first, then the
// value is stored, then observers see it in registration order.
func (a *Accumulator) PushResult(p float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p <= 0 || math.IsNaN(p) {
		a.logger.Warn("received pValue = %g, which is not positive; storing %g instead", p, qa.PValueFloor)
		p = qa.PValueFloor
	}
	a.pvalues = append(a.pvalues, p)
	for _, fn := range a.observers {
		fn(p)
	}
	return p
}

// Count returns the number of stored values.
func (a *Accumulator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pvalues)
}

// PValues returns a copy of the stored values in push order.
func (a *Accumulator) PValues() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.pvalues))
	copy(out, a.pvalues)
	return out
}

// CombinedChi2 returns -2 * sum(ln p).
func (a *Accumulator) CombinedChi2() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return combinedChi2(a.pvalues)
}

// CombinedNDF returns twice the number of stored values.
func (a *Accumulator) CombinedNDF() int {
	return 2 * a.Count()
}

// CombinedPValue returns the chi-square upper tail at CombinedChi2 with
// CombinedNDF degrees of freedom. An empty accumulator yields 1.
func (a *Accumulator) CombinedPValue() float64 {
	return a.Combined().PValue
}

// Combined takes a consistent snapshot of the combined statistic.
func (a *Accumulator) Combined() qa.CombinedStatistic {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Combine(a.pvalues)
}

// Reset drops all stored values. Observers stay registered.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pvalues = nil
}

// Combine computes Fisher's statistic for an arbitrary set of p-values,
// which must already be positive.
func Combine(pvalues []float64) qa.CombinedStatistic {
	n := len(pvalues)
	stat := qa.CombinedStatistic{
		Chi2:   combinedChi2(pvalues),
		NDF:    2 * n,
		PValue: 1,
		Count:  n,
	}
	if n > 0 {
		stat.PValue = distuv.ChiSquared{K: float64(stat.NDF)}.Survival(stat.Chi2)
	}
	return stat
}

func combinedChi2(pvalues []float64) float64 {
	var chi2 float64
	for _, p := range pvalues {
		chi2 -= 2 * math.Log(p)
	}
	return chi2
}
