// Package kde implements the kernel density estimation strategy: a
// weighted Gaussian KDE evaluated at the bin centers of the same grid the
// binned estimator would use, so levels and statistics stay comparable
// between the two strategies. Profile likelihood maps are never smoothed.
package kde

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/model"
)

// KDE is the kernel density estimation strategy.
type KDE struct {
	selector Selector
	kernel   *GaussianKernel
}

func New(selector Selector) *KDE {
	return &KDE{
		selector: selector,
		kernel:   NewGaussianKernel(),
	}
}

// Density1D evaluates the weighted KDE at every bin center of the grid
// and normalises the result to sum to 1. Samples outside the grid limits
// are excluded; if none remain the map is all zeros.
func (k *KDE) Density1D(xs, ws []float64, g model.Grid) (*model.DensityMap, error) {
	if len(xs) != len(ws) {
		return nil, fmt.Errorf("%w: %d values for %d weights", common.ErrorInvalidData, len(xs), len(ws))
	}
	xs, ws, _ = clipToGrid(xs, ws, nil, g)
	values := make([]float64, g.NBins)
	if len(xs) == 0 || totalWeight(ws) <= 0 {
		return &model.DensityMap{Grids: []model.Grid{g}, Values: values}, nil
	}

	bw, err := k.bandwidth(xs, ws, g)
	if err != nil {
		return nil, err
	}

	for i := 0; i < g.NBins; i++ {
		c := g.Center(i)
		var sum float64
		for j, x := range xs {
			sum += ws[j] * k.kernel.Shape((x-c)/bw)
		}
		values[i] = sum
	}
	normaliseToUnit(values)
	return &model.DensityMap{Grids: []model.Grid{g}, Values: values}, nil
}

// Density2D evaluates a product-Gaussian KDE with an independent
// bandwidth per axis. Every grid cell is independent, so rows are
// evaluated in parallel.
func (k *KDE) Density2D(ctx context.Context, xs, ys, ws []float64, gx, gy model.Grid) (*model.DensityMap, error) {
	if len(xs) != len(ys) || len(xs) != len(ws) {
		return nil, fmt.Errorf("%w: mismatched column lengths %d/%d/%d",
			common.ErrorInvalidData, len(xs), len(ys), len(ws))
	}
	xs, ws, ys = clipToGrid(xs, ws, ys, gx)
	ys, ws, xs = clipToGrid(ys, ws, xs, gy)

	values := make([]float64, gx.NBins*gy.NBins)
	if len(xs) == 0 || totalWeight(ws) <= 0 {
		return &model.DensityMap{Grids: []model.Grid{gx, gy}, Values: values}, nil
	}

	bwx, err := k.bandwidth(xs, ws, gx)
	if err != nil {
		return nil, err
	}
	bwy, err := k.bandwidth(ys, ws, gy)
	if err != nil {
		return nil, err
	}

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < gx.NBins; i++ {
		row := values[i*gy.NBins : (i+1)*gy.NBins]
		cx := gx.Center(i)
		group.Go(func() error {
			kx := make([]float64, len(xs))
			for j, x := range xs {
				kx[j] = ws[j] * k.kernel.Shape((x-cx)/bwx)
			}
			for jy := 0; jy < gy.NBins; jy++ {
				cy := gy.Center(jy)
				var sum float64
				for j, y := range ys {
					sum += kx[j] * k.kernel.Shape((y-cy)/bwy)
				}
				row[jy] = sum
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	normaliseToUnit(values)
	return &model.DensityMap{Grids: []model.Grid{gx, gy}, Values: values}, nil
}

// bandwidth applies the configured selector with a floor of one bin
// width, so a zero-variance axis smooths into its own bin instead of
// dividing by zero.
func (k *KDE) bandwidth(xs, ws []float64, g model.Grid) (float64, error) {
	bw, err := k.selector.Bandwidth(xs, ws, k.kernel)
	if err != nil {
		return 0, err
	}
	if bw <= 0 || math.IsNaN(bw) {
		bw = g.Width()
	}
	return bw, nil
}

// clipToGrid drops samples whose primary value falls outside the grid,
// keeping weights and the paired secondary column aligned.
func clipToGrid(xs, ws, paired []float64, g model.Grid) ([]float64, []float64, []float64) {
	outX := make([]float64, 0, len(xs))
	outW := make([]float64, 0, len(ws))
	var outP []float64
	if paired != nil {
		outP = make([]float64, 0, len(paired))
	}
	for i, x := range xs {
		if x < g.Lower || x > g.Upper {
			continue
		}
		outX = append(outX, x)
		outW = append(outW, ws[i])
		if paired != nil {
			outP = append(outP, paired[i])
		}
	}
	return outX, outW, outP
}

func totalWeight(ws []float64) float64 {
	return floats.Sum(ws)
}

func normaliseToUnit(values []float64) {
	sum := floats.Sum(values)
	if sum <= 0 {
		return
	}
	floats.Scale(1/sum, values)
}
