// Package bins chooses bin grids for the density estimators: explicit,
// extent-of-data or quantile limits, and fixed or heuristic bin counts.
package bins

import (
	"fmt"
	"math"
	"sort"

	montstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/model"
)

const (
	// Tail quantiles used by the "quantile" limit strategy.
	quantileLower = 0.001
	quantileUpper = 0.999

	// Cap on the heuristic bin count per dimension.
	maxAutoBins = 1000
)

// Extent returns the smallest range covering every sample.
func Extent(xs []float64) (float64, float64, error) {
	if len(xs) == 0 {
		return 0, 0, fmt.Errorf("%w: no samples for bin limits", common.ErrorInsufficientData)
	}
	return floats.Min(xs), floats.Max(xs), nil
}

// QuantileLimits returns limits at the 0.1% and 99.9% weighted quantiles
// of the samples, which keeps a handful of outliers from stretching the
// whole grid.
func QuantileLimits(xs, ws []float64) (float64, float64, error) {
	lo, err := WeightedQuantile(quantileLower, xs, ws)
	if err != nil {
		return 0, 0, err
	}
	hi, err := WeightedQuantile(quantileUpper, xs, ws)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// WeightedQuantile returns the q quantile of weighted samples: the value
// at which the cumulative weight, taken in ascending value order, first
// exceeds q of the total, averaged with the preceding value. With nil
// weights every sample counts equally. The result depends only on the
// (value, weight) multiset, not on input order.
func WeightedQuantile(q float64, xs, ws []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, fmt.Errorf("%w: no samples for quantile", common.ErrorInsufficientData)
	}
	if q < 0 || q > 1 {
		return 0, fmt.Errorf("%w: quantile %v outside [0,1]", common.ErrorInvalidConfig, q)
	}
	if ws != nil && len(ws) != len(xs) {
		return 0, fmt.Errorf("%w: %d weights for %d samples", common.ErrorInvalidData, len(ws), len(xs))
	}

	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	var total float64
	if ws == nil {
		total = float64(len(xs))
	} else {
		for _, w := range ws {
			total += w
		}
		if total <= 0 {
			return 0, fmt.Errorf("%w: zero total weight", common.ErrorInsufficientData)
		}
	}

	target := q * total
	var cum float64
	for k, i := range order {
		if ws == nil {
			cum++
		} else {
			cum += ws[i]
		}
		if cum > target || k == len(order)-1 {
			if k == 0 {
				return xs[i], nil
			}
			return 0.5 * (xs[i] + xs[order[k-1]]), nil
		}
	}
	return xs[order[len(order)-1]], nil
}

// iqr is the weighted interquartile range; with nil weights it falls back
// to plain percentiles.
func iqr(xs, ws []float64) (float64, error) {
	if ws == nil {
		q75, err := montstats.Percentile(montstats.Float64Data(xs), 75)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrorInsufficientData, err)
		}
		q25, err := montstats.Percentile(montstats.Float64Data(xs), 25)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrorInsufficientData, err)
		}
		return q75 - q25, nil
	}
	q75, err := WeightedQuantile(0.75, xs, ws)
	if err != nil {
		return 0, err
	}
	q25, err := WeightedQuantile(0.25, xs, ws)
	if err != nil {
		return 0, err
	}
	return q75 - q25, nil
}

// neff is the effective number of samples given posterior weights, or the
// plain count with nil weights.
func neff(xs, ws []float64) float64 {
	if ws == nil {
		return float64(len(xs))
	}
	var sum, sumSq float64
	for _, w := range ws {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}

// AutoBinCount picks a bin count for [lower, upper] as the larger of the
// Freedman-Diaconis and Sturges estimates on the effective sample size,
// capped at 1000 bins.
func AutoBinCount(lower, upper float64, xs, ws []float64) (int, error) {
	n := neff(xs, ws)
	if n < 2 {
		return 0, fmt.Errorf("%w: %v effective samples", common.ErrorInsufficientData, n)
	}

	fd := 0
	spread, err := iqr(xs, ws)
	if err != nil {
		return 0, err
	}
	if spread > 0 {
		h := 2 * spread / math.Cbrt(n)
		fd = int(math.Ceil(math.Abs(upper-lower) / h))
	}

	sturges := int(math.Ceil(math.Log2(n) + 1))

	nbins := fd
	if sturges > nbins {
		nbins = sturges
	}
	if nbins > maxAutoBins {
		nbins = maxAutoBins
	}
	if nbins < 1 {
		nbins = 1
	}
	return nbins, nil
}

// NewGrid builds a grid of nbins equal-width bins over [lower, upper].
// A degenerate axis (upper == lower, e.g. a zero-variance parameter) is
// widened to unit span, placed so the lone value sits on a bin center.
func NewGrid(lower, upper float64, nbins int) (model.Grid, error) {
	if nbins <= 0 {
		return model.Grid{}, fmt.Errorf("%w: nbins %d", common.ErrorInvalidConfig, nbins)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || upper < lower {
		return model.Grid{}, fmt.Errorf("%w: bin limits [%v, %v]", common.ErrorInvalidConfig, lower, upper)
	}
	if upper == lower {
		w := 1.0 / float64(nbins)
		mid := nbins / 2
		lo := lower - (float64(mid)+0.5)*w
		return model.Grid{Lower: lo, Upper: lo + 1, NBins: nbins}, nil
	}
	return model.Grid{Lower: lower, Upper: upper, NBins: nbins}, nil
}
