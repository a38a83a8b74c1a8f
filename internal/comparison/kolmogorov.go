package comparison

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
)

// KolmogorovTest compares two binned distributions with the Kolmogorov
// distance of their cumulative contents.
type KolmogorovTest struct{}

// NewKolmogorovTest creates a new binned Kolmogorov-Smirnov test
func NewKolmogorovTest() *KolmogorovTest {
	return &KolmogorovTest{}
}

// Name returns the test label used in comparison legends
func (t *KolmogorovTest) Name() string {
	return "KS-Test"
}

// Test returns the Kolmogorov probability that a and b come from the same
// parent distribution. Empty inputs yield 0.
func (t *KolmogorovTest) Test(a, b *histogram.Histogram) (float64, error) {
	if err := checkPair(a, b); err != nil {
		return 0, err
	}

	positions := binPositions(a)
	n1, err := effectiveEntries(a)
	if err != nil {
		return 0, err
	}
	n2, err := effectiveEntries(b)
	if err != nil {
		return 0, err
	}
	if n1 == 0 || n2 == 0 {
		return 0, nil
	}

	d := stat.KolmogorovSmirnov(positions, a.Contents, positions, b.Contents)
	z := d * math.Sqrt(n1*n2/(n1+n2))
	return KolmogorovProb(z), nil
}

// KolmogorovProb is the asymptotic probability of the Kolmogorov
// distribution P(K > z).
func KolmogorovProb(z float64) float64 {
	const (
		w  = 2.50662827
		c1 = -1.2337005501361697
		c2 = -11.103304951225528
		c3 = -30.842513753404244
	)

	u := math.Abs(z)
	switch {
	case u < 0.2:
		return 1
	case u < 0.755:
		v := 1 / (u * u)
		return 1 - w*(math.Exp(c1*v)+math.Exp(c2*v)+math.Exp(c3*v))/u
	case u < 6.8116:
		fj := [4]float64{-2, -8, -18, -32}
		var r [4]float64
		v := u * u
		maxj := int(math.Max(1, math.Round(3/u)))
		for j := 0; j < maxj && j < len(r); j++ {
			r[j] = math.Exp(fj[j] * v)
		}
		return 2 * (r[0] - r[1] + r[2] - r[3])
	default:
		return 0
	}
}

// binPositions orders bins along the cumulative sum: bin centres for 1D,
// the flattened bin index otherwise.
func binPositions(h *histogram.Histogram) []float64 {
	positions := make([]float64, h.Len())
	for i := range positions {
		if h.Dim() == 1 {
			positions[i] = h.Axes[0].Center(i)
		} else {
			positions[i] = float64(i)
		}
	}
	return positions
}

// effectiveEntries returns sum^2 / sum(err^2), which equals the plain sum
// for unweighted counts.
func effectiveEntries(h *histogram.Histogram) (float64, error) {
	var sum, sumw2 float64
	for i, v := range h.Contents {
		if v < 0 {
			return 0, core.NewInvalidHistogramError(h.Name, fmt.Sprintf("negative content %g in bin %d", v, i))
		}
		sum += v
		ix, iy, iz := h.Coords(i)
		e := h.ErrorAt(ix, iy, iz)
		sumw2 += e * e
	}
	if sum == 0 || sumw2 == 0 {
		return 0, nil
	}
	return sum * sum / sumw2, nil
}

func checkPair(a, b *histogram.Histogram) error {
	if a == nil {
		return core.NewMissingHistogramError("new")
	}
	if b == nil {
		return core.NewMissingHistogramError("reference")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	return a.SameShape(b)
}
