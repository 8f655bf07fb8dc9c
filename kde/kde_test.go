package kde

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/model"
)

func gaussianish(n int) ([]float64, []float64) {
	// Deterministic bell-shaped sample: quantile-spaced points of a
	// triangular-ish distribution, equal weights.
	xs := make([]float64, n)
	ws := make([]float64, n)
	for i := range xs {
		u := (float64(i) + 0.5) / float64(n)
		xs[i] = u * u * (3 - 2*u) // smoothstep clusters mass around 0.5
		ws[i] = 1
	}
	return xs, ws
}

func TestDensity1DSumsToOne(t *testing.T) {
	xs, ws := gaussianish(200)
	g := model.Grid{Lower: 0, Upper: 1, NBins: 50}

	for _, method := range []Method{MethodScott, MethodSilverman, MethodReference} {
		k := New(Selector{Method: method})
		m, err := k.Density1D(xs, ws, g)
		require.NoError(t, err, string(method))
		assert.InDelta(t, 1.0, m.Total(), 1e-9, string(method))
		for _, v := range m.Values {
			assert.False(t, math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestDensity1DPeaksNearMass(t *testing.T) {
	xs, ws := gaussianish(500)
	g := model.Grid{Lower: 0, Upper: 1, NBins: 20}

	k := New(Selector{Method: MethodScott})
	m, err := k.Density1D(xs, ws, g)
	require.NoError(t, err)

	maxBin := 0
	for i, v := range m.Values {
		if v > m.Values[maxBin] {
			maxBin = i
		}
	}
	assert.InDelta(t, 0.5, g.Center(maxBin), 0.15)
}

func TestDensity1DZeroVarianceUsesFloor(t *testing.T) {
	xs := []float64{5, 5, 5, 5, 5}
	ws := []float64{1, 1, 1, 1, 1}
	g := model.Grid{Lower: 4.45, Upper: 5.45, NBins: 10}

	k := New(Selector{Method: MethodScott})
	m, err := k.Density1D(xs, ws, g)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Total(), 1e-9)
	for _, v := range m.Values {
		require.False(t, math.IsNaN(v))
	}
}

func TestDensity1DFixedBandwidth(t *testing.T) {
	xs, ws := gaussianish(100)
	g := model.Grid{Lower: 0, Upper: 1, NBins: 25}

	narrow := New(Selector{Method: MethodFixed, Value: 0.01})
	wide := New(Selector{Method: MethodFixed, Value: 0.5})

	mn, err := narrow.Density1D(xs, ws, g)
	require.NoError(t, err)
	mw, err := wide.Density1D(xs, ws, g)
	require.NoError(t, err)

	// The wider bandwidth must flatten the peak.
	peak := func(m *model.DensityMap) float64 {
		best := 0.0
		for _, v := range m.Values {
			best = math.Max(best, v)
		}
		return best
	}
	assert.Greater(t, peak(mn), peak(mw))
}

func TestDensity1DAllExcludedIsEmpty(t *testing.T) {
	g := model.Grid{Lower: 10, Upper: 11, NBins: 5}
	k := New(Selector{Method: MethodScott})
	m, err := k.Density1D([]float64{1, 2}, []float64{1, 1}, g)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Total())
}

func TestDensity2DSumsToOne(t *testing.T) {
	xs, ws := gaussianish(150)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 1 - x
	}
	gx := model.Grid{Lower: 0, Upper: 1, NBins: 20}
	gy := model.Grid{Lower: 0, Upper: 1, NBins: 30}

	k := New(Selector{Method: MethodScott})
	m, err := k.Density2D(context.Background(), xs, ys, ws, gx, gy)
	require.NoError(t, err)
	require.Len(t, m.Values, 600)
	assert.InDelta(t, 1.0, m.Total(), 1e-9)
}

func TestDensity2DDeterministic(t *testing.T) {
	xs, ws := gaussianish(100)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = x * x
	}
	gx := model.Grid{Lower: 0, Upper: 1, NBins: 15}
	gy := model.Grid{Lower: 0, Upper: 1, NBins: 15}

	k := New(Selector{Method: MethodSilverman})
	m1, err := k.Density2D(context.Background(), xs, ys, ws, gx, gy)
	require.NoError(t, err)
	m2, err := k.Density2D(context.Background(), xs, ys, ws, gx, gy)
	require.NoError(t, err)
	assert.Equal(t, m1.Values, m2.Values)
}

func TestBandwidthSelector(t *testing.T) {
	xs, ws := gaussianish(100)
	kernel := NewGaussianKernel()

	for _, method := range []Method{MethodScott, MethodSilverman, MethodReference} {
		bw, err := Selector{Method: method}.Bandwidth(xs, ws, kernel)
		require.NoError(t, err, string(method))
		assert.Greater(t, bw, 0.0, string(method))
		assert.Less(t, bw, 1.0, string(method))
	}

	bw, err := Selector{Method: MethodFixed, Value: 0.3}.Bandwidth(xs, ws, kernel)
	require.NoError(t, err)
	assert.Equal(t, 0.3, bw)

	_, err = Selector{Method: MethodFixed, Value: -1}.Bandwidth(xs, ws, kernel)
	assert.True(t, errors.Is(err, common.ErrorInvalidConfig))

	_, err = Selector{Method: "cosine"}.Bandwidth(xs, ws, kernel)
	assert.True(t, errors.Is(err, common.ErrorInvalidConfig))
}

func TestNormalReferenceConstant(t *testing.T) {
	c := NewGaussianKernel().NormalReferenceConstant()
	assert.InDelta(t, 1.0592, c, 1e-3)
}
