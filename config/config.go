// Package config holds the engine options. Options are loaded once, at
// process start, and passed into the pipeline by value; nothing reads
// them as mutable shared state mid-computation.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openfit/chainstats/common"
	"github.com/openfit/chainstats/kde"
	"github.com/openfit/chainstats/model"
)

// Limit strategies for deriving bin limits from the data.
const (
	LimitExtent   = "extent"
	LimitQuantile = "quantile"
)

// AxisLimits are explicit bin limits for one axis; they take precedence
// over the limit strategy.
type AxisLimits struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// Options is the full engine configuration.
type Options struct {
	// NBins is the bin count per dimension; 0 selects the automatic
	// Freedman-Diaconis/Sturges heuristic.
	NBins int `yaml:"nbins"`

	// Alphas are the tail probabilities defining credible and confidence
	// levels, e.g. 0.3173 for 1 sigma.
	Alphas []float64 `yaml:"alphas"`

	// LimitMethod is the strategy for bin limits when no explicit limits
	// are given: "extent" or "quantile".
	LimitMethod string `yaml:"limit_method"`

	// XLimits and YLimits, when set, pin the grids explicitly.
	XLimits *AxisLimits `yaml:"x_limits"`
	YLimits *AxisLimits `yaml:"y_limits"`

	// KDE selects kernel density estimation instead of weighted binning
	// for posterior maps. Profile maps always bin.
	KDE bool `yaml:"kde"`

	// Bandwidth names the KDE bandwidth rule: "scott", "silverman",
	// "reference" or "fixed" (with BandwidthValue).
	Bandwidth      string  `yaml:"bandwidth"`
	BandwidthValue float64 `yaml:"bandwidth_value"`

	// DoF is the number of degrees of freedom for the chi-squared
	// goodness-of-fit p-value.
	DoF int `yaml:"dof"`

	// Schemes carries per-element-type rendering metadata. The engine
	// never reads it; the matching entry rides along on the Result.
	Schemes map[string]model.Scheme `yaml:"schemes"`
}

// DefaultOptions mirrors the historical defaults: 50 bins, 1 and 2 sigma
// levels, extent limits, binned estimation, one degree of freedom.
func DefaultOptions() Options {
	return Options{
		NBins:       50,
		Alphas:      []float64{0.3173, 0.0455},
		LimitMethod: LimitExtent,
		Bandwidth:   string(kde.MethodScott),
		DoF:         1,
	}
}

// Load reads options from a YAML file, filling unset fields from the
// defaults.
func Load(path string) (Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("%w: read options: %v", common.ErrorInvalidConfig, err)
	}
	return Parse(raw)
}

// Parse decodes YAML options, filling unset fields from the defaults.
func Parse(raw []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("%w: parse options: %v", common.ErrorInvalidConfig, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks every option against its legal range.
func (o Options) Validate() error {
	if o.NBins < 0 {
		return fmt.Errorf("%w: nbins %d", common.ErrorInvalidConfig, o.NBins)
	}
	if len(o.Alphas) == 0 {
		return fmt.Errorf("%w: no alpha values", common.ErrorInvalidConfig)
	}
	for _, alpha := range o.Alphas {
		if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
			return fmt.Errorf("%w: alpha %v outside (0,1)", common.ErrorInvalidConfig, alpha)
		}
	}
	switch o.LimitMethod {
	case LimitExtent, LimitQuantile, "":
	default:
		return fmt.Errorf("%w: unknown limit method %q", common.ErrorInvalidConfig, o.LimitMethod)
	}
	for _, lim := range []*AxisLimits{o.XLimits, o.YLimits} {
		if lim == nil {
			continue
		}
		if math.IsNaN(lim.Lower) || math.IsNaN(lim.Upper) || lim.Upper < lim.Lower {
			return fmt.Errorf("%w: axis limits [%v, %v]", common.ErrorInvalidConfig, lim.Lower, lim.Upper)
		}
	}
	switch kde.Method(o.Bandwidth) {
	case kde.MethodScott, kde.MethodSilverman, kde.MethodReference, "":
	case kde.MethodFixed:
		if o.BandwidthValue <= 0 || math.IsNaN(o.BandwidthValue) || math.IsInf(o.BandwidthValue, 0) {
			return fmt.Errorf("%w: fixed bandwidth %v", common.ErrorInvalidConfig, o.BandwidthValue)
		}
	default:
		return fmt.Errorf("%w: unknown bandwidth method %q", common.ErrorInvalidConfig, o.Bandwidth)
	}
	if o.DoF <= 0 {
		return fmt.Errorf("%w: dof %d", common.ErrorInvalidConfig, o.DoF)
	}
	return nil
}

// SchemeFor returns the rendering metadata for one element type, nil if
// none is configured.
func (o Options) SchemeFor(elementType string) *model.Scheme {
	if elementType == "" || o.Schemes == nil {
		return nil
	}
	scheme, ok := o.Schemes[elementType]
	if !ok {
		return nil
	}
	return &scheme
}
