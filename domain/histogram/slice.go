package histogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"qacompare/domain/core"
)

// ProfileBin summarises the y values of one x-bin of a 2D histogram.
type ProfileBin struct {
	Center    float64 // x-bin centre
	HalfWidth float64
	Mean      float64 // weighted mean of y bin centres
	Spread    float64 // weighted population standard deviation of y
	Entries   float64 // sum of weights in the slice
}

func (h *Histogram) require2D() error {
	if h.Dim() != 2 {
		return fmt.Errorf("%w: %q has %d axes", core.ErrNotTwoDimensional, h.Name, h.Dim())
	}
	return nil
}

// ProjectionY extracts the y-slice at x-bin ix as a 1D histogram over the y
// axis. Bin errors are carried over.
func (h *Histogram) ProjectionY(ix int) (*Histogram, error) {
	if err := h.require2D(); err != nil {
		return nil, err
	}
	if ix < 0 || ix >= h.NBins(0) {
		return nil, fmt.Errorf("x-bin %d out of range [0,%d)", ix, h.NBins(0))
	}
	ny := h.NBins(1)
	p := &Histogram{
		Name:     fmt.Sprintf("%s_py_%d", h.Name, ix),
		Axes:     []Axis{NewVariableAxis(h.Axes[1].Edges)},
		Contents: make([]float64, ny),
		Errors:   make([]float64, ny),
	}
	for iy := 0; iy < ny; iy++ {
		p.Contents[iy] = h.At(ix, iy, 0)
		p.Errors[iy] = h.ErrorAt(ix, iy, 0)
	}
	return p, nil
}

// ProfileX returns the per-x-bin mean and spread of y. Bins with no positive
// weight report zero mean and spread.
func (h *Histogram) ProfileX() ([]ProfileBin, error) {
	if err := h.require2D(); err != nil {
		return nil, err
	}
	nx, ny := h.NBins(0), h.NBins(1)
	yAxis := h.Axes[1]

	centers := make([]float64, ny)
	for iy := range centers {
		centers[iy] = yAxis.Center(iy)
	}

	out := make([]ProfileBin, nx)
	weights := make([]float64, ny)
	for ix := 0; ix < nx; ix++ {
		var total float64
		for iy := 0; iy < ny; iy++ {
			weights[iy] = h.At(ix, iy, 0)
			total += weights[iy]
		}
		pb := ProfileBin{
			Center:    h.Axes[0].Center(ix),
			HalfWidth: h.Axes[0].Width(ix) / 2,
			Entries:   total,
		}
		if total > 0 {
			mean, spread := stat.PopMeanStdDev(centers, weights)
			if math.IsNaN(spread) {
				spread = 0
			}
			pb.Mean, pb.Spread = mean, spread
		}
		out[ix] = pb
	}
	return out, nil
}
