// Package pipeline orchestrates one reduction: estimate a density or
// profile likelihood map over the requested parameters, solve the
// credible or confidence levels, and extract the scalar statistics into
// a single result for the rendering layer.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openfit/chainstats/bins"
	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/config"
	"github.com/openfit/chainstats/histogram"
	"github.com/openfit/chainstats/kde"
	"github.com/openfit/chainstats/levels"
	"github.com/openfit/chainstats/model"
	"github.com/openfit/chainstats/sample"
	"github.com/openfit/chainstats/summary"
	"github.com/openfit/chainstats/utils"
)

// estimator is the posterior density capability. Weighted binning and
// KDE both implement it; profile likelihood always bins, since a profile
// is a minimum, not a density.
type estimator interface {
	Density1D(xs, ws []float64, g model.Grid) (*model.DensityMap, error)
	Density2D(ctx context.Context, xs, ys, ws []float64, gx, gy model.Grid) (*model.DensityMap, error)
}

// Request selects one reduction: one parameter name for 1D or two for
// 2D, the map mode, and optionally the element type whose scheme
// metadata should ride along for the renderer.
type Request struct {
	XParam      string
	YParam      string
	Mode        model.PlotMode
	ElementType string
}

func (r Request) twoDim() bool {
	return r.YParam != ""
}

// Engine runs reductions over one immutable sample store. Safe for
// concurrent use; every Reduce call works on its own buffers.
type Engine struct {
	store *sample.Store
	opts  config.Options
	est   estimator
}

// New validates the options and builds an engine bound to a store.
func New(store *sample.Store, opts config.Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil sample store", common.ErrorInvalidData)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var est estimator = histogram.Binned{}
	if opts.KDE {
		est = kde.New(kde.Selector{
			Method: kde.Method(opts.Bandwidth),
			Value:  opts.BandwidthValue,
		})
	}
	return &Engine{store: store, opts: opts, est: est}, nil
}

// Reduce executes one reduction request and returns a self-contained
// result. Identical inputs produce identical output: nothing here
// depends on map iteration order or randomness, and the weighted
// statistics are invariant under sample reordering.
func (e *Engine) Reduce(ctx context.Context, req Request) (res *model.Result, err error) {
	logger := utils.GetLogger(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("reduction panic", zap.Any("err", r),
				zap.String("panic info", utils.GetPanicInfo()), zap.Any("request", req))
			res, err = nil, fmt.Errorf("%w: panic during reduction", common.ErrorInvalidData)
		}
	}()

	if err := e.checkRequest(req); err != nil {
		logger.Error("bad reduction request", zap.Error(err), zap.Any("request", req))
		return nil, err
	}
	if e.store.EffectiveSampleSize() < 2 {
		return nil, fmt.Errorf("%w: fewer than 2 effective samples", common.ErrorInsufficientData)
	}

	if req.twoDim() {
		res, err = e.reduceTwoDim(ctx, req)
	} else {
		res, err = e.reduceOneDim(ctx, req)
	}
	if err != nil {
		logger.Error("reduction failed", zap.Error(err),
			zap.String("x", req.XParam), zap.String("y", req.YParam),
			zap.String("mode", req.Mode.String()))
		return nil, err
	}
	res.Scheme = e.opts.SchemeFor(req.ElementType)
	return res, nil
}

func (e *Engine) checkRequest(req Request) error {
	if req.Mode != model.PosteriorPlot && req.Mode != model.ProfilePlot {
		return fmt.Errorf("%w: unknown plot mode %d", common.ErrorInvalidConfig, int(req.Mode))
	}
	if req.XParam == "" {
		return fmt.Errorf("%w: missing x parameter", common.ErrorInvalidConfig)
	}
	for _, name := range []string{req.XParam, req.YParam} {
		if name != "" && !e.store.Has(name) {
			return fmt.Errorf("%w: unknown parameter %q", common.ErrorInvalidData, name)
		}
	}
	return nil
}

func (e *Engine) reduceOneDim(ctx context.Context, req Request) (*model.Result, error) {
	xs, err := e.store.Column(req.XParam)
	if err != nil {
		return nil, err
	}
	ws := e.store.Weights()
	grid, err := e.axisGrid(xs, ws, e.opts.XLimits)
	if err != nil {
		return nil, err
	}

	res := &model.Result{
		Mode:   req.Mode,
		Params: []string{req.XParam},
		Grids:  []model.Grid{grid},
	}

	axis, err := e.axisSummary(req.XParam, xs, ws)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case model.PosteriorPlot:
		dens, err := e.est.Density1D(xs, ws, grid)
		if err != nil {
			return nil, err
		}
		lvls, err := levels.Credible(dens, e.opts.Alphas)
		if err != nil {
			return nil, err
		}
		modes, err := summary.Modes1D(dens)
		if err != nil {
			return nil, err
		}
		axis.Modes = modes
		for _, lv := range lvls {
			equalTail, err := summary.EqualTail(xs, ws, lv.Alpha)
			if err != nil {
				return nil, err
			}
			axis.CredibleIntervals = append(axis.CredibleIntervals, model.CredibleInterval{
				Alpha:          lv.Alpha,
				EqualTail:      equalTail,
				HighestDensity: summary.HighestDensityIntervals(dens, lv.Value),
			})
		}
		res.Posterior = dens
		res.Levels = lvls

	case model.ProfilePlot:
		prof, err := histogram.Profile1D(xs, e.store.NegLogLike(), grid)
		if err != nil {
			return nil, err
		}
		lvls, err := levels.Confidence(prof, e.opts.Alphas, 1)
		if err != nil {
			return nil, err
		}
		for _, lv := range lvls {
			axis.ConfidenceIntervals = append(axis.ConfidenceIntervals, model.ConfidenceInterval{
				Alpha:   lv.Alpha,
				Regions: summary.ConfidenceRegions(prof, lv.Value),
			})
		}
		res.Profile = prof
		res.Levels = lvls
	}

	fit, err := e.fitSummary()
	if err != nil {
		return nil, err
	}
	fit.Axes = []model.AxisSummary{axis}
	res.Summary = fit
	return res, nil
}

func (e *Engine) reduceTwoDim(ctx context.Context, req Request) (*model.Result, error) {
	xs, err := e.store.Column(req.XParam)
	if err != nil {
		return nil, err
	}
	ys, err := e.store.Column(req.YParam)
	if err != nil {
		return nil, err
	}
	ws := e.store.Weights()

	gx, err := e.axisGrid(xs, ws, e.opts.XLimits)
	if err != nil {
		return nil, err
	}
	gy, err := e.axisGrid(ys, ws, e.opts.YLimits)
	if err != nil {
		return nil, err
	}

	res := &model.Result{
		Mode:   req.Mode,
		Params: []string{req.XParam, req.YParam},
		Grids:  []model.Grid{gx, gy},
	}

	axisX, err := e.axisSummary(req.XParam, xs, ws)
	if err != nil {
		return nil, err
	}
	axisY, err := e.axisSummary(req.YParam, ys, ws)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case model.PosteriorPlot:
		dens, err := e.est.Density2D(ctx, xs, ys, ws, gx, gy)
		if err != nil {
			return nil, err
		}
		lvls, err := levels.Credible(dens, e.opts.Alphas)
		if err != nil {
			return nil, err
		}
		modes, err := summary.Modes2D(dens)
		if err != nil {
			return nil, err
		}
		for _, mode := range modes {
			axisX.Modes = append(axisX.Modes, mode[0])
			axisY.Modes = append(axisY.Modes, mode[1])
		}
		res.Posterior = dens
		res.Levels = lvls

	case model.ProfilePlot:
		prof, err := histogram.Profile2D(xs, ys, e.store.NegLogLike(), gx, gy)
		if err != nil {
			return nil, err
		}
		lvls, err := levels.Confidence(prof, e.opts.Alphas, 2)
		if err != nil {
			return nil, err
		}
		res.Profile = prof
		res.Levels = lvls
	}

	fit, err := e.fitSummary()
	if err != nil {
		return nil, err
	}
	fit.Axes = []model.AxisSummary{axisX, axisY}
	res.Summary = fit
	return res, nil
}

// axisGrid fixes the grid for one axis: explicit limits win, otherwise
// the configured strategy derives them from the samples. The same grid
// is reused by the map, the level solve and the interval extraction.
func (e *Engine) axisGrid(xs, ws []float64, explicit *config.AxisLimits) (model.Grid, error) {
	var lower, upper float64
	var err error
	switch {
	case explicit != nil:
		lower, upper = explicit.Lower, explicit.Upper
	case e.opts.LimitMethod == config.LimitQuantile:
		lower, upper, err = bins.QuantileLimits(xs, ws)
	default:
		lower, upper, err = bins.Extent(xs)
	}
	if err != nil {
		return model.Grid{}, err
	}

	nbins := e.opts.NBins
	if nbins == 0 {
		nbins, err = bins.AutoBinCount(lower, upper, xs, ws)
		if err != nil {
			return model.Grid{}, err
		}
	}
	return bins.NewGrid(lower, upper, nbins)
}

// axisSummary computes the statistics that come from the raw samples,
// never the binned map: weighted mean and median, and the best-fit value
// of this parameter.
func (e *Engine) axisSummary(name string, xs, ws []float64) (model.AxisSummary, error) {
	mean, err := summary.Mean(xs, ws)
	if err != nil {
		return model.AxisSummary{}, err
	}
	median, err := summary.Median(xs, ws)
	if err != nil {
		return model.AxisSummary{}, err
	}
	fit, err := e.store.BestFit()
	if err != nil {
		return model.AxisSummary{}, err
	}
	col := 0
	for i, n := range e.store.Names() {
		if n == name {
			col = i
			break
		}
	}
	return model.AxisSummary{
		Name:    name,
		Mean:    mean,
		Median:  median,
		BestFit: fit.Params[col],
	}, nil
}

// fitSummary computes the goodness-of-fit numbers shared by every axis:
// the chi-squared statistic of the best fit and its p-value at the
// configured degrees of freedom.
func (e *Engine) fitSummary() (model.Summary, error) {
	fit, err := e.store.BestFit()
	if err != nil {
		return model.Summary{}, err
	}
	chiSq := summary.ChiSq(fit.NLL)
	pValue, err := summary.PValue(chiSq, e.opts.DoF)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{ChiSqMin: chiSq, PValue: pValue}, nil
}
