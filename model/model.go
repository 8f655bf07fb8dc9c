package model

import "math"

// PlotMode selects which kind of map a reduction produces.
type PlotMode int

const (
	// PosteriorPlot marginalises the posterior weight onto the grid.
	PosteriorPlot PlotMode = iota + 1
	// ProfilePlot keeps the best (minimum) negative log-likelihood per bin.
	ProfilePlot
)

func (m PlotMode) String() string {
	switch m {
	case PosteriorPlot:
		return "posterior"
	case ProfilePlot:
		return "profile"
	}
	return "unknown"
}

// Grid is an ordered partition of one parameter axis into NBins
// equal-width intervals over [Lower, Upper].
type Grid struct {
	Lower float64
	Upper float64
	NBins int
}

// Width returns the width of a single bin.
func (g Grid) Width() float64 {
	return (g.Upper - g.Lower) / float64(g.NBins)
}

// Center returns the center of bin i.
func (g Grid) Center(i int) float64 {
	return g.Lower + (float64(i)+0.5)*g.Width()
}

// Centers returns the centers of every bin in axis order.
func (g Grid) Centers() []float64 {
	res := make([]float64, g.NBins)
	for i := range res {
		res[i] = g.Center(i)
	}
	return res
}

// Index maps a parameter value to its bin. Values exactly on an interior
// bin boundary belong to the lower-indexed bin; values outside
// [Lower, Upper] report ok == false.
func (g Grid) Index(x float64) (int, bool) {
	if math.IsNaN(x) || x < g.Lower || x > g.Upper {
		return 0, false
	}
	if x == g.Lower {
		return 0, true
	}
	i := int(math.Ceil((x-g.Lower)/g.Width())) - 1
	if i < 0 {
		i = 0
	}
	if i > g.NBins-1 {
		i = g.NBins - 1
	}
	return i, true
}

// Interval is a closed parameter range.
type Interval struct {
	Lower float64
	Upper float64
}

// Level is the contour value bounding the credible or confidence region
// for one alpha. For posterior maps Value is a bin mass; for profile maps
// it is a delta chi-squared threshold relative to the map minimum.
type Level struct {
	Alpha float64
	Value float64
}

// CredibleInterval holds the 1D credible interval bounds for one alpha:
// the equal-tail interval from the raw weighted samples, and the outer
// edges of every contiguous run of bins at or above the credible level.
// Disjoint runs are all reported, never collapsed.
type CredibleInterval struct {
	Alpha          float64
	EqualTail      Interval
	HighestDensity []Interval
}

// ConfidenceInterval holds the 1D confidence region bounds for one alpha:
// every contiguous run of bins whose profile likelihood is inside the
// delta chi-squared threshold.
type ConfidenceInterval struct {
	Alpha   float64
	Regions []Interval
}

// AxisSummary carries the scalar statistics for one plotted parameter.
type AxisSummary struct {
	Name    string
	Mean    float64
	Median  float64
	Modes   []float64
	BestFit float64

	CredibleIntervals   []CredibleInterval
	ConfidenceIntervals []ConfidenceInterval
}

// Summary bundles the per-axis statistics with the goodness-of-fit
// numbers for the whole reduction.
type Summary struct {
	Axes     []AxisSummary
	ChiSqMin float64
	PValue   float64
}

// Scheme is renderer metadata for one plot-element type. The engine never
// reads it; it is carried through the Result for the rendering layer.
type Scheme struct {
	Colour string `yaml:"colour"`
	Symbol string `yaml:"symbol"`
	Label  string `yaml:"label"`
	Size   int    `yaml:"size"`
}

// Result is the self-contained output of one reduction, owned by the
// caller. Exactly one of Posterior or Profile is set, per Mode.
type Result struct {
	Mode   PlotMode
	Params []string
	Grids  []Grid

	Posterior *DensityMap
	Profile   *ProfileMap

	Levels  []Level
	Summary Summary

	Scheme *Scheme
}
