// Package histogram holds the binned distribution shared by every QA component:
// up to three axes of monotonic edges and a flat array of bin contents with
// optional per-bin errors.
package histogram

import (
	"fmt"
	"math"
	"sort"

	"qacompare/domain/core"
)

var axisNames = [3]string{"x", "y", "z"}

// Axis is an ordered sequence of N+1 strictly increasing bin edges.
type Axis struct {
	Edges []float64 `json:"edges"`
}

// NewUniformAxis creates n equal-width bins spanning [lo, hi).
func NewUniformAxis(n int, lo, hi float64) Axis {
	if n < 1 {
		n = 1
	}
	edges := make([]float64, n+1)
	width := (hi - lo) / float64(n)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[n] = hi
	return Axis{Edges: edges}
}

// NewVariableAxis copies the given edges into a new axis.
func NewVariableAxis(edges []float64) Axis {
	return Axis{Edges: append([]float64(nil), edges...)}
}

// NBins returns the number of bins on the axis.
func (a Axis) NBins() int {
	if len(a.Edges) < 2 {
		return 0
	}
	return len(a.Edges) - 1
}

func (a Axis) Low(i int) float64  { return a.Edges[i] }
func (a Axis) High(i int) float64 { return a.Edges[i+1] }

// Center returns the midpoint of bin i.
func (a Axis) Center(i int) float64 { return 0.5 * (a.Edges[i] + a.Edges[i+1]) }

// Width returns the width of bin i.
func (a Axis) Width(i int) float64 { return a.Edges[i+1] - a.Edges[i] }

func (a Axis) Min() float64 { return a.Edges[0] }
func (a Axis) Max() float64 { return a.Edges[len(a.Edges)-1] }

// FindBin returns the 0-based bin holding x, -1 for underflow and NBins for
// overflow. Bins are closed on the low edge.
func (a Axis) FindBin(x float64) int {
	n := a.NBins()
	if n == 0 || math.IsNaN(x) || x < a.Edges[0] {
		return -1
	}
	if x >= a.Edges[n] {
		return n
	}
	return sort.Search(n, func(i int) bool { return a.Edges[i+1] > x })
}

// Equal reports whether both axes have bit-identical edges.
func (a Axis) Equal(b Axis) bool {
	if len(a.Edges) != len(b.Edges) {
		return false
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			return false
		}
	}
	return true
}

func (a Axis) validate() error {
	if len(a.Edges) < 2 {
		return fmt.Errorf("axis needs at least 2 edges, got %d", len(a.Edges))
	}
	for i := 1; i < len(a.Edges); i++ {
		if !(a.Edges[i] > a.Edges[i-1]) {
			return fmt.Errorf("edges not strictly increasing at index %d (%g <= %g)", i, a.Edges[i], a.Edges[i-1])
		}
	}
	return nil
}

// Histogram is a 1D, 2D or 3D binned distribution. Contents are stored with x
// varying fastest: index = ix + nx*(iy + ny*iz). Errors is either nil, in which
// case bin errors are sqrt(|content|), or has one entry per bin.
type Histogram struct {
	Name     string    `json:"name"`
	Title    string    `json:"title,omitempty"`
	Axes     []Axis    `json:"axes"`
	Contents []float64 `json:"contents"`
	Errors   []float64 `json:"errors,omitempty"`
}

// New creates an empty histogram over the given axes.
func New(name string, axes ...Axis) *Histogram {
	size := 1
	for _, a := range axes {
		size *= a.NBins()
	}
	return &Histogram{
		Name:     name,
		Axes:     axes,
		Contents: make([]float64, size),
	}
}

func New1D(name string, nx int, xlo, xhi float64) *Histogram {
	return New(name, NewUniformAxis(nx, xlo, xhi))
}

func New2D(name string, nx int, xlo, xhi float64, ny int, ylo, yhi float64) *Histogram {
	return New(name, NewUniformAxis(nx, xlo, xhi), NewUniformAxis(ny, ylo, yhi))
}

func New3D(name string, nx int, xlo, xhi float64, ny int, ylo, yhi float64, nz int, zlo, zhi float64) *Histogram {
	return New(name, NewUniformAxis(nx, xlo, xhi), NewUniformAxis(ny, ylo, yhi), NewUniformAxis(nz, zlo, zhi))
}

// Dim returns the number of axes.
func (h *Histogram) Dim() int { return len(h.Axes) }

// NBins returns the bin count of the given axis, or 1 for an axis the
// histogram does not have, so 3-level loops work for every dimensionality.
func (h *Histogram) NBins(axis int) int {
	if axis >= len(h.Axes) {
		return 1
	}
	return h.Axes[axis].NBins()
}

// Len returns the total number of bins.
func (h *Histogram) Len() int { return len(h.Contents) }

// Index converts per-axis bin indices to the flat storage index.
func (h *Histogram) Index(ix, iy, iz int) int {
	return ix + h.NBins(0)*(iy+h.NBins(1)*iz)
}

// Coords converts a flat storage index back to per-axis bin indices.
func (h *Histogram) Coords(i int) (ix, iy, iz int) {
	nx, ny := h.NBins(0), h.NBins(1)
	ix = i % nx
	iy = (i / nx) % ny
	iz = i / (nx * ny)
	return ix, iy, iz
}

func (h *Histogram) At(ix, iy, iz int) float64 { return h.Contents[h.Index(ix, iy, iz)] }

func (h *Histogram) Set(ix, iy, iz int, v float64) { h.Contents[h.Index(ix, iy, iz)] = v }

// ErrorAt returns the bin error, falling back to sqrt(|content|).
func (h *Histogram) ErrorAt(ix, iy, iz int) float64 {
	i := h.Index(ix, iy, iz)
	if h.Errors != nil {
		return h.Errors[i]
	}
	return math.Sqrt(math.Abs(h.Contents[i]))
}

// SetError sets one bin error, materialising the error array on first use.
func (h *Histogram) SetError(ix, iy, iz int, e float64) {
	h.ensureErrors()
	h.Errors[h.Index(ix, iy, iz)] = e
}

func (h *Histogram) ensureErrors() {
	if h.Errors != nil {
		return
	}
	h.Errors = make([]float64, len(h.Contents))
	for i, c := range h.Contents {
		h.Errors[i] = math.Sqrt(math.Abs(c))
	}
}

// Fill adds weight w at the given coordinates. Out-of-range coordinates are
// dropped; Fill reports whether the entry landed in a bin.
func (h *Histogram) Fill(w float64, coords ...float64) bool {
	if len(coords) != len(h.Axes) {
		return false
	}
	var idx [3]int
	for a, x := range coords {
		b := h.Axes[a].FindBin(x)
		if b < 0 || b >= h.Axes[a].NBins() {
			return false
		}
		idx[a] = b
	}
	i := h.Index(idx[0], idx[1], idx[2])
	h.Contents[i] += w
	if h.Errors != nil {
		h.Errors[i] = math.Sqrt(h.Errors[i]*h.Errors[i] + w*w)
	}
	return true
}

// Sum returns the total of all bin contents.
func (h *Histogram) Sum() float64 {
	var s float64
	for _, c := range h.Contents {
		s += c
	}
	return s
}

// Validate checks the structural invariants of the histogram.
func (h *Histogram) Validate() error {
	if h == nil {
		return core.NewMissingHistogramError("histogram")
	}
	if len(h.Axes) < 1 || len(h.Axes) > 3 {
		return core.NewInvalidHistogramError(h.Name, fmt.Sprintf("expected 1 to 3 axes, got %d", len(h.Axes)))
	}
	size := 1
	for i, a := range h.Axes {
		if err := a.validate(); err != nil {
			return core.NewInvalidHistogramError(h.Name, axisNames[i]+" "+err.Error())
		}
		size *= a.NBins()
	}
	if len(h.Contents) != size {
		return core.NewInvalidHistogramError(h.Name, fmt.Sprintf("expected %d contents, got %d", size, len(h.Contents)))
	}
	if h.Errors != nil && len(h.Errors) != size {
		return core.NewInvalidHistogramError(h.Name, fmt.Sprintf("expected %d errors, got %d", size, len(h.Errors)))
	}
	return nil
}

// SameShape checks that other has the same dimensionality and the same bin
// count on every axis. Edges are not compared.
func (h *Histogram) SameShape(other *Histogram) error {
	if h.Dim() != other.Dim() {
		return core.NewDimensionMismatchError(h.Dim(), other.Dim())
	}
	for i := range h.Axes {
		if a, b := h.Axes[i].NBins(), other.Axes[i].NBins(); a != b {
			return core.NewShapeMismatchError(axisNames[i], a, b)
		}
	}
	return nil
}

// Clone returns a deep copy under a new name.
func (h *Histogram) Clone(name string) *Histogram {
	axes := make([]Axis, len(h.Axes))
	for i, a := range h.Axes {
		axes[i] = NewVariableAxis(a.Edges)
	}
	c := &Histogram{
		Name:     name,
		Title:    h.Title,
		Axes:     axes,
		Contents: append([]float64(nil), h.Contents...),
	}
	if h.Errors != nil {
		c.Errors = append([]float64(nil), h.Errors...)
	}
	return c
}
