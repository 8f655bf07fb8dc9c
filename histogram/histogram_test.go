package histogram

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfit/chainstats/model"
)

func uniformSamples(n int) ([]float64, []float64) {
	xs := make([]float64, n)
	ws := make([]float64, n)
	for i := range xs {
		xs[i] = (float64(i) + 0.5) / float64(n)
		ws[i] = 1
	}
	return xs, ws
}

func TestDensity1DUniform(t *testing.T) {
	xs, ws := uniformSamples(1000)
	g := model.Grid{Lower: 0, Upper: 1, NBins: 10}

	m, err := Binned{}.Density1D(xs, ws, g)
	require.NoError(t, err)
	require.Len(t, m.Values, 10)

	var sum float64
	for _, v := range m.Values {
		assert.InDelta(t, 0.1, v, 1e-9)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestDensity1DBoundaryGoesToLowerBin(t *testing.T) {
	g := model.Grid{Lower: 0, Upper: 1, NBins: 2}
	m, err := Binned{}.Density1D([]float64{0.5}, []float64{1}, g)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.At(0))
	assert.Equal(t, 0.0, m.At(1))
}

func TestDensity1DOutOfRangeDropped(t *testing.T) {
	g := model.Grid{Lower: 0, Upper: 1, NBins: 4}
	m, err := Binned{}.Density1D([]float64{-5, 0.5, 5}, []float64{1, 1, 1}, g)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Total(), 1e-12)
	assert.Equal(t, 1.0, m.At(1))
}

func TestDensity1DAllExcludedIsEmptyNotError(t *testing.T) {
	g := model.Grid{Lower: 10, Upper: 11, NBins: 4}
	m, err := Binned{}.Density1D([]float64{0.5, 0.6}, []float64{1, 1}, g)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Total())
}

func TestDensity1DPermutationInvariant(t *testing.T) {
	xs := []float64{0.1, 0.9, 0.4, 0.6, 0.4}
	ws := []float64{1, 2, 3, 4, 5}
	g := model.Grid{Lower: 0, Upper: 1, NBins: 5}

	m1, err := Binned{}.Density1D(xs, ws, g)
	require.NoError(t, err)

	rxs := []float64{0.4, 0.6, 0.4, 0.9, 0.1}
	rws := []float64{5, 4, 3, 2, 1}
	m2, err := Binned{}.Density1D(rxs, rws, g)
	require.NoError(t, err)

	for i := range m1.Values {
		assert.InDelta(t, m1.Values[i], m2.Values[i], 1e-12)
	}
}

func TestDensity2DSumsToOne(t *testing.T) {
	xs := []float64{0.1, 0.2, 0.8, 0.9}
	ys := []float64{0.9, 0.8, 0.2, 0.1}
	ws := []float64{1, 2, 2, 1}
	gx := model.Grid{Lower: 0, Upper: 1, NBins: 4}
	gy := model.Grid{Lower: 0, Upper: 1, NBins: 5}

	m, err := Binned{}.Density2D(context.Background(), xs, ys, ws, gx, gy)
	require.NoError(t, err)
	require.Len(t, m.Values, 20)
	assert.InDelta(t, 1.0, m.Total(), 1e-12)

	// y=0.8 and y=0.2 sit exactly on bin boundaries and belong to the
	// lower-indexed bin.
	assert.InDelta(t, 1.0/6.0, m.At2(0, 4), 1e-12)
	assert.InDelta(t, 2.0/6.0, m.At2(0, 3), 1e-12)
	assert.InDelta(t, 3.0/6.0, m.At2(3, 0), 1e-12)
}

func TestProfile1D(t *testing.T) {
	xs := []float64{0.1, 0.15, 0.5, 0.55, 0.9}
	nll := []float64{3.0, 2.0, 1.0, 1.5, 4.0}
	g := model.Grid{Lower: 0, Upper: 1, NBins: 5}

	p, err := Profile1D(xs, nll, g)
	require.NoError(t, err)

	assert.Equal(t, 2.0, p.At(0))
	assert.True(t, math.IsInf(p.At(1), 1))
	assert.Equal(t, 1.0, p.At(2))
	assert.True(t, math.IsInf(p.At(3), 1))
	assert.Equal(t, 4.0, p.At(4))

	assert.Equal(t, 1.0, p.MinNLL)
	assert.InDelta(t, 2.0, p.DeltaChiSq[0], 1e-12)
	assert.Equal(t, 0.0, p.DeltaChiSq[2])
	assert.True(t, math.IsInf(p.DeltaChiSq[1], 1))
	assert.Equal(t, 1.0, p.Like[2])
	assert.Equal(t, 0.0, p.Like[1])
	assert.False(t, p.Empty())
}

func TestProfile1DEmptyMap(t *testing.T) {
	g := model.Grid{Lower: 0, Upper: 1, NBins: 3}
	p, err := Profile1D([]float64{5, 6}, []float64{1, 2}, g)
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestProfile2D(t *testing.T) {
	xs := []float64{0.25, 0.25, 0.75}
	ys := []float64{0.25, 0.25, 0.75}
	nll := []float64{5.0, 3.0, 4.0}
	gx := model.Grid{Lower: 0, Upper: 1, NBins: 2}
	gy := model.Grid{Lower: 0, Upper: 1, NBins: 2}

	p, err := Profile2D(xs, ys, nll, gx, gy)
	require.NoError(t, err)

	assert.Equal(t, 3.0, p.At2(0, 0))
	assert.Equal(t, 4.0, p.At2(1, 1))
	assert.True(t, math.IsInf(p.At2(0, 1), 1))
	assert.Equal(t, 3.0, p.MinNLL)
}
