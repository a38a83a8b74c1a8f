package summary

import (
	"math"
	"sync"

	"qacompare/domain/histogram"
)

const pValueHistBins = 50

// PValueHistograms tracks the distribution of pushed values in linear and
// logarithmic scale.
type PValueHistograms struct {
	mu    sync.Mutex
	Value *histogram.Histogram
	Log   *histogram.Histogram
}

// NewPValueHistograms creates the pair: p over [0, 1] and ln p over [-20, 0],
// both slightly widened so the bounds fall inside.
func NewPValueHistograms() *PValueHistograms {
	value := histogram.New1D("h_pValue", pValueHistBins, 0-1e-10, 1+1e-10)
	value.Title = "p-Value Summary;p-Value;Count of plots"
	logValue := histogram.New1D("h_Log_pValue", pValueHistBins, -20, 1e-10)
	logValue.Title = "Log p-Value Summary;Log[p-Value];Count of plots"
	return &PValueHistograms{Value: value, Log: logValue}
}

// Observe fills both histograms. Its method value is an Observer.
func (h *PValueHistograms) Observe(p float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Value.Fill(1, p)
	h.Log.Fill(1, math.Log(p))
}

// Observer adapts h for WithObserver.
func (h *PValueHistograms) Observer() Observer { return h.Observe }
