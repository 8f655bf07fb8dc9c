// Package histogram implements the weighted-binning density estimator:
// posterior maps accumulate sample weight per bin, profile maps keep the
// best negative log-likelihood seen per bin.
package histogram

import (
	"context"
	"fmt"
	"math"

	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/model"
)

// Binned is the histogram estimation strategy. The zero value is ready
// to use.
type Binned struct{}

// Density1D accumulates sample weight into the bin covering each value
// and normalises the result to sum to 1. Samples outside the grid are
// dropped; if none land on the grid the map is all zeros.
func (Binned) Density1D(xs, ws []float64, g model.Grid) (*model.DensityMap, error) {
	if len(xs) != len(ws) {
		return nil, fmt.Errorf("%w: %d values for %d weights", common.ErrorInvalidData, len(xs), len(ws))
	}
	values := make([]float64, g.NBins)
	var total float64
	for i, x := range xs {
		bin, ok := g.Index(x)
		if !ok {
			continue
		}
		values[bin] += ws[i]
		total += ws[i]
	}
	normalise(values, total)
	return &model.DensityMap{Grids: []model.Grid{g}, Values: values}, nil
}

// Density2D is the two-axis version of Density1D; the map is flattened
// row-major with the first axis outermost.
func (Binned) Density2D(ctx context.Context, xs, ys, ws []float64, gx, gy model.Grid) (*model.DensityMap, error) {
	if len(xs) != len(ys) || len(xs) != len(ws) {
		return nil, fmt.Errorf("%w: mismatched column lengths %d/%d/%d",
			common.ErrorInvalidData, len(xs), len(ys), len(ws))
	}
	values := make([]float64, gx.NBins*gy.NBins)
	var total float64
	for i := range xs {
		bx, ok := gx.Index(xs[i])
		if !ok {
			continue
		}
		by, ok := gy.Index(ys[i])
		if !ok {
			continue
		}
		values[bx*gy.NBins+by] += ws[i]
		total += ws[i]
	}
	normalise(values, total)
	return &model.DensityMap{Grids: []model.Grid{gx, gy}, Values: values}, nil
}

func normalise(values []float64, total float64) {
	if total <= 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}

// Profile1D keeps the minimum negative log-likelihood per bin. Empty bins
// hold +Inf, which orders correctly under minimum and is distinguishable
// from any finite likelihood.
func Profile1D(xs, nll []float64, g model.Grid) (*model.ProfileMap, error) {
	if len(xs) != len(nll) {
		return nil, fmt.Errorf("%w: %d values for %d likelihoods", common.ErrorInvalidData, len(xs), len(nll))
	}
	values := fillInf(g.NBins)
	for i, x := range xs {
		bin, ok := g.Index(x)
		if !ok {
			continue
		}
		if nll[i] < values[bin] {
			values[bin] = nll[i]
		}
	}
	return finishProfile([]model.Grid{g}, values), nil
}

// Profile2D is the two-axis version of Profile1D, flattened row-major.
func Profile2D(xs, ys, nll []float64, gx, gy model.Grid) (*model.ProfileMap, error) {
	if len(xs) != len(ys) || len(xs) != len(nll) {
		return nil, fmt.Errorf("%w: mismatched column lengths %d/%d/%d",
			common.ErrorInvalidData, len(xs), len(ys), len(nll))
	}
	values := fillInf(gx.NBins * gy.NBins)
	for i := range xs {
		bx, ok := gx.Index(xs[i])
		if !ok {
			continue
		}
		by, ok := gy.Index(ys[i])
		if !ok {
			continue
		}
		bin := bx*gy.NBins + by
		if nll[i] < values[bin] {
			values[bin] = nll[i]
		}
	}
	return finishProfile([]model.Grid{gx, gy}, values), nil
}

func fillInf(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Inf(1)
	}
	return values
}

// finishProfile derives the delta chi-squared and profile likelihood
// views: the map minimum has delta 0 and likelihood 1, empty bins keep
// +Inf delta and 0 likelihood.
func finishProfile(grids []model.Grid, values []float64) *model.ProfileMap {
	minNLL := math.Inf(1)
	for _, v := range values {
		if v < minNLL {
			minNLL = v
		}
	}
	delta := make([]float64, len(values))
	like := make([]float64, len(values))
	for i, v := range values {
		if math.IsInf(v, 1) {
			delta[i] = math.Inf(1)
			continue
		}
		delta[i] = 2 * (v - minNLL)
		like[i] = math.Exp(-0.5 * delta[i])
	}
	return &model.ProfileMap{
		Grids:      grids,
		NLL:        values,
		MinNLL:     minNLL,
		DeltaChiSq: delta,
		Like:       like,
	}
}
