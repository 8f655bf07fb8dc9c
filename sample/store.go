package sample

import (
	"fmt"
	"math"

	"github.com/openfit/chainstats/common"
)

// Row is one chain entry: a posterior weight, a negative log-likelihood
// and one value per parameter.
type Row struct {
	Weight float64
	NLL    float64
	Params []float64
}

// Store is an immutable in-memory table of weighted samples. It is
// populated once by Load and safe for concurrent reads; columns are
// aligned by row index in input order.
type Store struct {
	names   []string
	index   map[string]int
	weights []float64
	nll     []float64
	cols    [][]float64
}

// Load validates the rows and builds a Store. Every row must have one
// value per named parameter, weights must be finite and non-negative,
// and likelihoods finite.
func Load(names []string, rows []Row) (*Store, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no parameter names", common.ErrorInvalidData)
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: empty parameter name at column %d", common.ErrorInvalidData, i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter name %q", common.ErrorInvalidData, name)
		}
		index[name] = i
	}

	s := &Store{
		names:   append([]string(nil), names...),
		index:   index,
		weights: make([]float64, len(rows)),
		nll:     make([]float64, len(rows)),
		cols:    make([][]float64, len(names)),
	}
	for d := range s.cols {
		s.cols[d] = make([]float64, len(rows))
	}

	for i, row := range rows {
		if len(row.Params) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				common.ErrorInvalidData, i, len(row.Params), len(names))
		}
		if math.IsNaN(row.Weight) || math.IsInf(row.Weight, 0) || row.Weight < 0 {
			return nil, fmt.Errorf("%w: row %d has bad weight %v", common.ErrorInvalidData, i, row.Weight)
		}
		if math.IsNaN(row.NLL) || math.IsInf(row.NLL, 0) {
			return nil, fmt.Errorf("%w: row %d has non-finite likelihood", common.ErrorInvalidData, i)
		}
		for d, v := range row.Params {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d has non-finite value for %q",
					common.ErrorInvalidData, i, names[d])
			}
			s.cols[d][i] = v
		}
		s.weights[i] = row.Weight
		s.nll[i] = row.NLL
	}

	return s, nil
}

// Len returns the number of rows.
func (s *Store) Len() int {
	return len(s.weights)
}

// Names returns the parameter names in column order.
func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether a parameter name is known.
func (s *Store) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Column returns a copy of the values of one parameter, aligned by row
// index with Weights and NegLogLike.
func (s *Store) Column(name string) ([]float64, error) {
	d, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", common.ErrorInvalidData, name)
	}
	return append([]float64(nil), s.cols[d]...), nil
}

// Weights returns a copy of the posterior weight column.
func (s *Store) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

// NegLogLike returns a copy of the negative log-likelihood column.
func (s *Store) NegLogLike() []float64 {
	return append([]float64(nil), s.nll...)
}

// EffectiveSampleSize returns (sum w)^2 / sum w^2, the usual effective
// number of weighted samples. Zero when the store is empty or all
// weights are zero.
func (s *Store) EffectiveSampleSize() float64 {
	var sum, sumSq float64
	for _, w := range s.weights {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}

// BestFitRow returns the index of the row with the smallest negative
// log-likelihood; ties keep the first occurrence in input order.
func (s *Store) BestFitRow() (int, error) {
	if len(s.nll) == 0 {
		return 0, fmt.Errorf("%w: no samples loaded", common.ErrorInsufficientData)
	}
	best := 0
	for i, v := range s.nll {
		if v < s.nll[best] {
			best = i
		}
	}
	return best, nil
}

// BestFit returns the full best-fit row.
func (s *Store) BestFit() (Row, error) {
	i, err := s.BestFitRow()
	if err != nil {
		return Row{}, err
	}
	params := make([]float64, len(s.cols))
	for d := range s.cols {
		params[d] = s.cols[d][i]
	}
	return Row{Weight: s.weights[i], NLL: s.nll[i], Params: params}, nil
}
