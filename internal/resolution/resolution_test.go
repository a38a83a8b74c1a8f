package resolution

import (
	"bytes"
	"errors"
	"log"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/ports"
)

// MockFitter is a mock implementation of ports.GaussianFitter
type MockFitter struct {
	mock.Mock
}

func (m *MockFitter) Fit(slice *histogram.Histogram, seed qa.GaussParams, window ports.FitWindow) (ports.FitResult, error) {
	args := m.Called(slice, seed, window)
	return args.Get(0).(ports.FitResult), args.Error(1)
}

// echoFitter returns the seed as the fit result, optionally after a delay.
type echoFitter struct {
	mu    sync.Mutex
	calls int
	delay func(seed qa.GaussParams) time.Duration
	fail  func(seed qa.GaussParams) error
}

func (f *echoFitter) Fit(slice *histogram.Histogram, seed qa.GaussParams, window ports.FitWindow) (ports.FitResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay != nil {
		time.Sleep(f.delay(seed))
	}
	if f.fail != nil {
		if err := f.fail(seed); err != nil {
			return ports.FitResult{}, err
		}
	}
	return ports.FitResult{
		Params:    seed,
		Errors:    qa.GaussParams{1, 0.1, 0.05},
		Converged: true,
		Status:    "Success",
	}, nil
}

func testLogger(buf *bytes.Buffer) *internal.Logger {
	return internal.NewLogger(internal.LogLevelDebug).WithOutput(log.New(buf, "", 0))
}

// build2D fills every (x-bin, y-centre) with fn.
func build2D(nx, ny int, ylo, yhi float64, fn func(ix int, y float64) float64) *histogram.Histogram {
	h := histogram.New2D("h2", nx, 0, float64(nx), ny, ylo, yhi)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			h.Set(ix, iy, 0, fn(ix, h.Axes[1].Center(iy)))
		}
	}
	return h
}

func gaussianRows(norm func(ix int) float64, mean func(ix int) float64, sigma func(ix int) float64) func(int, float64) float64 {
	return func(ix int, y float64) float64 {
		z := (y - mean(ix)) / sigma(ix)
		return norm(ix) * math.Exp(-0.5*z*z)
	}
}

func TestGateSkipsLightSlices(t *testing.T) {
	h := build2D(5, 20, 0, 20, func(ix int, y float64) float64 {
		switch ix {
		case 1:
			if y == 10.5 {
				return 9.9
			}
			return 0
		case 3:
			return 0
		default:
			if y == 9.5 || y == 10.5 {
				return 10
			}
			return 0
		}
	})

	fitter := &echoFitter{}
	opts := DefaultOptions()
	opts.Fitter = fitter
	opts.NormalizeByMean = false

	points, err := FitResolution(h, opts)
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.LessOrEqual(t, len(points), h.NBins(0))
	assert.Equal(t, []int{0, 2, 4}, []int{points[0].Bin, points[1].Bin, points[2].Bin})
	assert.Equal(t, 3, fitter.calls, "gated slices are never fitted")
	for _, p := range points {
		assert.InDelta(t, h.Axes[0].Center(p.Bin), p.X, 1e-12)
		assert.InDelta(t, 0.5, p.Value, 1e-12, "seed sigma is the profile spread")
	}
}

func TestZeroOptionsKeepTheGate(t *testing.T) {
	// Slice sums are 6 and 0.
	h := build2D(2, 10, 0, 10, func(ix int, y float64) float64 {
		if ix == 0 && (y == 4.5 || y == 5.5) {
			return 3
		}
		return 0
	})

	fitter := &MockFitter{}
	opts := Options{Param: qa.ParamSigma, Fitter: fitter}

	points, err := FitResolution(h, opts)
	require.NoError(t, err)
	assert.Empty(t, points)

	profile, err := FitProfile(h, opts)
	require.NoError(t, err)
	assert.Empty(t, profile)

	fitter.AssertNotCalled(t, "Fit", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, qa.MinSliceWeight, opts.withDefaults().MinWeight)
}

func TestSeedAndWindow(t *testing.T) {
	h := build2D(2, 20, 0, 20, func(ix int, y float64) float64 {
		if ix == 0 && (y == 9.5 || y == 10.5) {
			return 10
		}
		if ix == 1 && y == 5.5 {
			return 20
		}
		return 0
	})

	fitter := &MockFitter{}
	ok := ports.FitResult{Params: qa.GaussParams{10, 10, 0.5}, Errors: qa.GaussParams{1, 1, 1}, Converged: true}
	fitter.On("Fit", mock.Anything, qa.GaussParams{10, 10, 0.5}, ports.FitWindow{Low: 8, High: 12}).Return(ok, nil).Once()
	fitter.On("Fit", mock.Anything, qa.GaussParams{20, 5.5, 1}, ports.FitWindow{Low: 1.5, High: 9.5}).Return(ok, nil).Once()

	opts := DefaultOptions()
	opts.Fitter = fitter
	_, err := FitProfile(h, opts)
	require.NoError(t, err)
	fitter.AssertExpectations(t)
}

func TestOrderingWithWorkers(t *testing.T) {
	nx := 8
	h := build2D(nx, 40, 0, 40, gaussianRows(
		func(int) float64 { return 100 },
		func(ix int) float64 { return 10 + float64(ix) },
		func(int) float64 { return 2 },
	))

	fitter := &echoFitter{delay: func(seed qa.GaussParams) time.Duration {
		// Later bins finish first.
		return time.Duration(40-seed.Mean()) * time.Millisecond
	}}
	opts := DefaultOptions()
	opts.Fitter = fitter
	opts.Workers = 4

	points, err := FitProfile(h, opts)
	require.NoError(t, err)
	require.Len(t, points, nx)
	for i, p := range points {
		assert.Equal(t, i, p.Bin)
		assert.Equal(t, 0.5, p.HalfWidth)
	}
}

func TestNormalisation(t *testing.T) {
	h := build2D(1, 10, 0, 10, func(int, float64) float64 { return 5 })

	fitter := &MockFitter{}
	fitter.On("Fit", mock.Anything, mock.Anything, mock.Anything).Return(ports.FitResult{
		Params:    qa.GaussParams{100, 10, 2},
		Errors:    qa.GaussParams{1, 0.5, 0.4},
		Converged: true,
	}, nil)

	opts := DefaultOptions()
	opts.Fitter = fitter

	points, err := FitResolution(h, opts)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 0.2, points[0].Value, 1e-12)
	assert.InDelta(t, 0.04, points[0].Error, 1e-12)

	opts.NormalizeByMean = false
	points, err = FitResolution(h, opts)
	require.NoError(t, err)
	assert.Equal(t, 2.0, points[0].Value)
	assert.Equal(t, 0.4, points[0].Error)

	opts.Param = qa.ParamMean
	opts.NormalizeByMean = true
	points, err = FitResolution(h, opts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, points[0].Value)
	assert.Equal(t, 0.05, points[0].Error)
}

func TestConvergencePolicy(t *testing.T) {
	h := build2D(3, 10, 0, 10, func(int, float64) float64 { return 5 })
	unconverged := ports.FitResult{
		Params: qa.GaussParams{5, 5, 3},
		Errors: qa.GaussParams{1, 1, 1},
		Status: "IterationLimit",
	}

	cases := []struct {
		policy  qa.ConvergencePolicy
		points  int
		warning bool
	}{
		{qa.WarnUnconverged, 3, true},
		{qa.KeepUnconverged, 3, false},
		{qa.SkipUnconverged, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			fitter := &MockFitter{}
			fitter.On("Fit", mock.Anything, mock.Anything, mock.Anything).Return(unconverged, nil)

			var buf bytes.Buffer
			opts := DefaultOptions()
			opts.Fitter = fitter
			opts.Convergence = tc.policy
			opts.Logger = testLogger(&buf)

			points, err := FitResolution(h, opts)
			require.NoError(t, err)
			assert.Len(t, points, tc.points)
			assert.Equal(t, tc.warning, bytes.Contains(buf.Bytes(), []byte("[WARN] [resolution] x-bin 0: fit did not converge (IterationLimit)")))
			fitter.AssertNumberOfCalls(t, "Fit", 3)
		})
	}
}

func TestFitErrorsSkipOrAbort(t *testing.T) {
	h := build2D(3, 10, 0, 10, func(ix int, y float64) float64 { return float64(ix + 2) })

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = testLogger(&buf)
	opts.Fitter = &echoFitter{fail: func(seed qa.GaussParams) error {
		if seed.Constant() == 3 {
			return core.NewFitError("2 usable bins")
		}
		return nil
	}}

	points, err := FitProfile(h, opts)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0, points[0].Bin)
	assert.Equal(t, 2, points[1].Bin)
	assert.Contains(t, buf.String(), "x-bin 1: gaussian fit failed: 2 usable bins, skipped")

	boom := errors.New("solver exploded")
	opts.Fitter = &echoFitter{fail: func(qa.GaussParams) error { return boom }}
	_, err = FitProfile(h, opts)
	assert.ErrorIs(t, err, boom)
}

func TestInputValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.Fitter = &echoFitter{}

	_, err := FitResolution(histogram.New1D("h1", 3, 0, 3), opts)
	assert.ErrorIs(t, err, core.ErrNotTwoDimensional)

	_, err = FitProfile(nil, opts)
	assert.ErrorIs(t, err, core.ErrMissingHistogram)

	opts.Param = qa.FitParam(5)
	_, err = FitResolution(histogram.New2D("h2", 3, 0, 3, 3, 0, 3), opts)
	assert.ErrorIs(t, err, core.ErrInvalidParam)
}

func TestLeastSquaresResolution(t *testing.T) {
	h := build2D(4, 100, 0, 20, gaussianRows(
		func(int) float64 { return 200 },
		func(int) float64 { return 10 },
		func(ix int) float64 { return 0.5 + 0.25*float64(ix) },
	))

	opts := DefaultOptions()
	opts.Workers = 2
	opts.Logger = testLogger(&bytes.Buffer{})

	points, err := FitResolution(h, opts)
	require.NoError(t, err)
	require.Len(t, points, 4)
	for i, p := range points {
		sigma := 0.5 + 0.25*float64(i)
		assert.InDelta(t, sigma/10, p.Value, 1e-3, "bin %d", i)
		assert.Greater(t, p.Error, 0.0)
	}

	hist, err := FitResolutionHist(h, opts)
	require.NoError(t, err)
	assert.Equal(t, "h2_FitResolution", hist.Name)
	assert.True(t, hist.Axes[0].Equal(h.Axes[0]))
	for _, p := range points {
		assert.Equal(t, p.Value, hist.At(p.Bin, 0, 0))
		assert.Equal(t, p.Error, hist.ErrorAt(p.Bin, 0, 0))
	}
}

func TestResolutionHistLeavesSkippedBinsEmpty(t *testing.T) {
	h := build2D(3, 10, 0, 10, func(ix int, y float64) float64 {
		if ix == 1 {
			return 0
		}
		return 5
	})
	opts := DefaultOptions()
	opts.Fitter = &echoFitter{}

	hist, err := FitResolutionHist(h, opts)
	require.NoError(t, err)
	assert.Equal(t, 0.0, hist.At(1, 0, 0))
	assert.Equal(t, 0.0, hist.ErrorAt(1, 0, 0))
	assert.NotZero(t, hist.At(0, 0, 0))
}
