// Package summary extracts scalar statistics from raw weighted samples
// and from the binned maps: mean, median, mode, best fit, interval
// bounds and goodness of fit. Mean and median always come from the raw
// samples, never the binned map, so they do not depend on bin count.
package summary

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/openfit/chainstats/bins"
	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/model"
)

// Mean returns the weighted posterior mean of a raw sample column.
func Mean(xs, ws []float64) (float64, error) {
	if err := checkEffective(xs, ws); err != nil {
		return 0, err
	}
	return stat.Mean(xs, ws), nil
}

// Median returns the weighted posterior median of a raw sample column.
func Median(xs, ws []float64) (float64, error) {
	if err := checkEffective(xs, ws); err != nil {
		return 0, err
	}
	return bins.WeightedQuantile(0.5, xs, ws)
}

// EqualTail returns the credible interval with equal posterior mass in
// each tail, computed from the raw weighted samples.
func EqualTail(xs, ws []float64, alpha float64) (model.Interval, error) {
	if alpha <= 0 || alpha >= 1 {
		return model.Interval{}, fmt.Errorf("%w: alpha %v outside (0,1)", common.ErrorInvalidConfig, alpha)
	}
	if err := checkEffective(xs, ws); err != nil {
		return model.Interval{}, err
	}
	lo, err := bins.WeightedQuantile(alpha/2, xs, ws)
	if err != nil {
		return model.Interval{}, err
	}
	hi, err := bins.WeightedQuantile(1-alpha/2, xs, ws)
	if err != nil {
		return model.Interval{}, err
	}
	return model.Interval{Lower: lo, Upper: hi}, nil
}

// Modes1D returns the bin centers of every bin sharing the maximum
// density. Multiple modes are all reported; sensitivity to bin count is
// inherent to the definition.
func Modes1D(m *model.DensityMap) ([]float64, error) {
	idx, err := maxBins(m.Values)
	if err != nil {
		return nil, err
	}
	res := make([]float64, len(idx))
	for i, bin := range idx {
		res[i] = m.Grids[0].Center(bin)
	}
	return res, nil
}

// Modes2D returns the (x, y) bin centers of every cell sharing the
// maximum density of a 2D map.
func Modes2D(m *model.DensityMap) ([][2]float64, error) {
	idx, err := maxBins(m.Values)
	if err != nil {
		return nil, err
	}
	ny := m.Grids[1].NBins
	res := make([][2]float64, len(idx))
	for i, bin := range idx {
		res[i] = [2]float64{m.Grids[0].Center(bin / ny), m.Grids[1].Center(bin % ny)}
	}
	return res, nil
}

func maxBins(values []float64) ([]int, error) {
	maxVal := math.Inf(-1)
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		return nil, fmt.Errorf("%w: map has zero total mass", common.ErrorInsufficientData)
	}
	var idx []int
	for i, v := range values {
		if v == maxVal {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// HighestDensityIntervals returns the outer bin centers of every
// contiguous run of bins at or above the credible level. Disjoint runs
// of a multi-modal map are all reported.
func HighestDensityIntervals(m *model.DensityMap, level float64) []model.Interval {
	g := m.Grids[0]
	return runs(m.Values, g, func(v float64) bool { return v >= level })
}

// ConfidenceRegions returns the outer bin centers of every contiguous
// run of profile bins whose delta chi-squared is at or below the
// likelihood-ratio threshold.
func ConfidenceRegions(p *model.ProfileMap, threshold float64) []model.Interval {
	g := p.Grids[0]
	return runs(p.DeltaChiSq, g, func(v float64) bool { return v <= threshold })
}

func runs(values []float64, g model.Grid, inside func(float64) bool) []model.Interval {
	var res []model.Interval
	start := -1
	for i, v := range values {
		if inside(v) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			res = append(res, model.Interval{Lower: g.Center(start), Upper: g.Center(i - 1)})
			start = -1
		}
	}
	if start >= 0 {
		res = append(res, model.Interval{Lower: g.Center(start), Upper: g.Center(len(values) - 1)})
	}
	return res
}

// ChiSq converts a best-fit negative log-likelihood to the chi-squared
// statistic 2*NLL.
func ChiSq(minNLL float64) float64 {
	return 2 * minNLL
}

// PValue returns the survival-function p-value of a chi-squared
// statistic at the given degrees of freedom.
func PValue(chiSq float64, dof int) (float64, error) {
	if dof <= 0 {
		return 0, fmt.Errorf("%w: %d degrees of freedom", common.ErrorInvalidConfig, dof)
	}
	if chiSq < 0 {
		chiSq = 0
	}
	return distuv.ChiSquared{K: float64(dof)}.Survival(chiSq), nil
}

// checkEffective enforces the minimum of 2 effective samples required by
// every weighted statistic.
func checkEffective(xs, ws []float64) error {
	if len(xs) == 0 {
		return fmt.Errorf("%w: no samples", common.ErrorInsufficientData)
	}
	if ws == nil {
		if len(xs) < 2 {
			return fmt.Errorf("%w: %d samples", common.ErrorInsufficientData, len(xs))
		}
		return nil
	}
	if len(ws) != len(xs) {
		return fmt.Errorf("%w: %d weights for %d samples", common.ErrorInvalidData, len(ws), len(xs))
	}
	var sum, sumSq float64
	for _, w := range ws {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 || sum*sum/sumSq < 2 {
		return fmt.Errorf("%w: fewer than 2 effective samples", common.ErrorInsufficientData)
	}
	return nil
}
