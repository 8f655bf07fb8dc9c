// Package levels computes the contour values bounding credible regions
// on posterior maps and confidence regions on profile likelihood maps.
package levels

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/model"
)

// Credible returns, for each alpha, the density value such that the bins
// at or above it hold at least 1-alpha of the map's mass. Bins are
// walked in descending density order, so levels for nested alphas can
// never cross. The map must be normalised (or at least have positive
// total mass).
func Credible(m *model.DensityMap, alphas []float64) ([]model.Level, error) {
	if err := checkAlphas(alphas); err != nil {
		return nil, err
	}
	total := m.Total()
	if total <= 0 {
		return nil, fmt.Errorf("%w: map has zero total mass", common.ErrorInsufficientData)
	}

	sorted := append([]float64(nil), m.Values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	res := make([]model.Level, 0, len(alphas))
	for _, alpha := range alphas {
		target := (1 - alpha) * total
		var cum float64
		level := sorted[len(sorted)-1]
		for _, v := range sorted {
			cum += v
			if cum >= target {
				level = v
				break
			}
		}
		res = append(res, model.Level{Alpha: alpha, Value: level})
	}
	return res, nil
}

// Confidence returns, for each alpha, the delta chi-squared threshold of
// the likelihood-ratio test with dof free parameters (1 for a 1D slice,
// 2 for a 2D slice). The profile map must contain at least one finite
// bin.
func Confidence(m *model.ProfileMap, alphas []float64, dof int) ([]model.Level, error) {
	if err := checkAlphas(alphas); err != nil {
		return nil, err
	}
	if dof <= 0 {
		return nil, fmt.Errorf("%w: %d degrees of freedom", common.ErrorInvalidConfig, dof)
	}
	if m.Empty() {
		return nil, fmt.Errorf("%w: profile map has no finite bins", common.ErrorInsufficientData)
	}

	dist := distuv.ChiSquared{K: float64(dof)}
	res := make([]model.Level, 0, len(alphas))
	for _, alpha := range alphas {
		res = append(res, model.Level{Alpha: alpha, Value: dist.Quantile(1 - alpha)})
	}
	return res, nil
}

func checkAlphas(alphas []float64) error {
	if len(alphas) == 0 {
		return fmt.Errorf("%w: no alpha values", common.ErrorInvalidConfig)
	}
	for _, alpha := range alphas {
		if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
			return fmt.Errorf("%w: alpha %v outside (0,1)", common.ErrorInvalidConfig, alpha)
		}
	}
	return nil
}
