package sample

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfit/chainstats/common"
)

func row(w, nll float64, params ...float64) Row {
	return Row{Weight: w, NLL: nll, Params: params}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		rows  []Row
	}{
		{"no names", nil, nil},
		{"duplicate name", []string{"m0", "m0"}, nil},
		{"empty name", []string{"m0", ""}, nil},
		{"dimension mismatch", []string{"m0", "m12"}, []Row{row(1, 0, 1.0)}},
		{"negative weight", []string{"m0"}, []Row{row(-1, 0, 1.0)}},
		{"nan weight", []string{"m0"}, []Row{row(math.NaN(), 0, 1.0)}},
		{"infinite likelihood", []string{"m0"}, []Row{row(1, math.Inf(1), 1.0)}},
		{"nan parameter", []string{"m0"}, []Row{row(1, 0, math.NaN())}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.names, tc.rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrorInvalidData))
		})
	}
}

func TestColumnsAlignedByRow(t *testing.T) {
	s, err := Load([]string{"m0", "m12"}, []Row{
		row(1.0, 3.0, 10, 100),
		row(2.0, 2.0, 20, 200),
		row(0.5, 4.0, 30, 300),
	})
	require.NoError(t, err)

	m0, err := s.Column("m0")
	require.NoError(t, err)
	m12, err := s.Column("m12")
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 20, 30}, m0)
	assert.Equal(t, []float64{100, 200, 300}, m12)
	assert.Equal(t, []float64{1.0, 2.0, 0.5}, s.Weights())
	assert.Equal(t, []float64{3.0, 2.0, 4.0}, s.NegLogLike())
	assert.Equal(t, 3, s.Len())

	_, err = s.Column("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorInvalidData))
}

func TestColumnReturnsCopy(t *testing.T) {
	s, err := Load([]string{"m0"}, []Row{row(1, 0, 7)})
	require.NoError(t, err)

	col, err := s.Column("m0")
	require.NoError(t, err)
	col[0] = -1

	again, err := s.Column("m0")
	require.NoError(t, err)
	assert.Equal(t, 7.0, again[0])
}

func TestBestFitClearMinimum(t *testing.T) {
	rows := make([]Row, 100)
	for i := range rows {
		rows[i] = row(1.0, 10+math.Abs(float64(i-37))*0.1, float64(i), float64(i)*2)
	}
	s, err := Load([]string{"a", "b"}, rows)
	require.NoError(t, err)

	idx, err := s.BestFitRow()
	require.NoError(t, err)
	assert.Equal(t, 37, idx)

	fit, err := s.BestFit()
	require.NoError(t, err)
	assert.Equal(t, []float64{37, 74}, fit.Params)

	// Reversing the input order must still find the same parameter vector.
	reversed := make([]Row, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}
	s2, err := Load([]string{"a", "b"}, reversed)
	require.NoError(t, err)
	fit2, err := s2.BestFit()
	require.NoError(t, err)
	assert.Equal(t, fit.Params, fit2.Params)
}

func TestBestFitTieKeepsFirstRow(t *testing.T) {
	s, err := Load([]string{"x"}, []Row{
		row(1, 5.0, 1),
		row(1, 2.0, 2),
		row(1, 2.0, 3),
	})
	require.NoError(t, err)

	idx, err := s.BestFitRow()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestBestFitEmptyStore(t *testing.T) {
	s, err := Load([]string{"x"}, nil)
	require.NoError(t, err)
	_, err = s.BestFitRow()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorInsufficientData))
}

func TestEffectiveSampleSize(t *testing.T) {
	s, err := Load([]string{"x"}, []Row{
		row(1, 0, 1), row(1, 0, 2), row(1, 0, 3), row(1, 0, 4),
	})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, s.EffectiveSampleSize(), 1e-12)

	// All mass on one sample collapses the effective size to 1.
	s2, err := Load([]string{"x"}, []Row{
		row(100, 0, 1), row(0, 0, 2), row(0, 0, 3),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s2.EffectiveSampleSize(), 1e-12)

	s3, err := Load([]string{"x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s3.EffectiveSampleSize())
}
