// Package testkit generates deterministic histogram fixtures.
package testkit

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"qacompare/domain/histogram"
)

// GeneratorConfig configures the histogram generator
type GeneratorConfig struct {
	Seed uint64 `json:"seed"`
}

// DefaultGeneratorConfig returns a fixed seed
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{Seed: 42}
}

// HistogramGenerator fills histograms from seeded distributions. Two
// generators with the same seed produce identical histograms.
type HistogramGenerator struct {
	config GeneratorConfig
	src    rand.Source
}

// NewHistogramGenerator creates a new generator
func NewHistogramGenerator(config GeneratorConfig) *HistogramGenerator {
	return &HistogramGenerator{
		config: config,
		src:    rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15),
	}
}

// Gaussian1D fills events samples of N(mean, sigma) into nbins over [lo, hi).
func (g *HistogramGenerator) Gaussian1D(name string, events int, mean, sigma float64, nbins int, lo, hi float64) *histogram.Histogram {
	h := histogram.New1D(name, nbins, lo, hi)
	dist := distuv.Normal{Mu: mean, Sigma: sigma, Src: g.src}
	for i := 0; i < events; i++ {
		h.Fill(1, dist.Rand())
	}
	return h
}

// ResolutionConfig describes a 2D truth-vs-residual fixture.
type ResolutionConfig struct {
	NX         int
	XLo, XHi   float64
	NY         int
	YLo, YHi   float64
	EventsPerX int
	// Mean and Sigma of the residual as a function of the x-bin centre
	Mean  func(x float64) float64
	Sigma func(x float64) float64
}

// Resolution2D fills every x-bin with EventsPerX residuals drawn from
// N(Mean(x), Sigma(x)).
func (g *HistogramGenerator) Resolution2D(name string, cfg ResolutionConfig) *histogram.Histogram {
	h := histogram.New2D(name, cfg.NX, cfg.XLo, cfg.XHi, cfg.NY, cfg.YLo, cfg.YHi)
	xAxis := h.Axes[0]
	for ix := 0; ix < cfg.NX; ix++ {
		x := xAxis.Center(ix)
		mean := 0.0
		if cfg.Mean != nil {
			mean = cfg.Mean(x)
		}
		sigma := 1.0
		if cfg.Sigma != nil {
			sigma = cfg.Sigma(x)
		}
		dist := distuv.Normal{Mu: mean, Sigma: sigma, Src: g.src}
		for i := 0; i < cfg.EventsPerX; i++ {
			h.Fill(1, x, dist.Rand())
		}
	}
	return h
}

// PassTrials builds a trials histogram with trials[i] entries per bin and a
// pass histogram drawn binomially with efficiency eff(bin centre).
func (g *HistogramGenerator) PassTrials(name string, trials []int, lo, hi float64, eff func(x float64) float64) (pass, total *histogram.Histogram) {
	total = histogram.New1D(name+"_trials", len(trials), lo, hi)
	pass = histogram.New1D(name+"_pass", len(trials), lo, hi)
	axis := total.Axes[0]
	for i, n := range trials {
		total.Contents[i] = float64(n)
		if n == 0 {
			continue
		}
		p := eff(axis.Center(i))
		dist := distuv.Binomial{N: float64(n), P: p, Src: g.src}
		pass.Contents[i] = dist.Rand()
	}
	return pass, total
}
