package kde

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/openfit/chainstats/bins"
	"github.com/openfit/chainstats/common"
)

// Method names a bandwidth rule of thumb.
type Method string

const (
	// MethodScott uses Scott's rule: robust to outliers, picks the
	// smaller of the standard deviation and IQR/1.349.
	MethodScott Method = "scott"
	// MethodSilverman uses Silverman's rule of thumb on the standard
	// deviation alone.
	MethodSilverman Method = "silverman"
	// MethodReference uses the kernel's normal reference constant, as in
	// statsmodels.
	MethodReference Method = "reference"
	// MethodFixed uses a caller-supplied numeric bandwidth.
	MethodFixed Method = "fixed"
)

// Selector picks a bandwidth for one axis of weighted samples. Value is
// only read for MethodFixed.
type Selector struct {
	Method Method
	Value  float64
}

// Bandwidth returns the selected bandwidth, using the effective sample
// size in place of the raw count for weighted data. A zero-variance axis
// yields bandwidth 0; the estimator applies its floor in that case.
func (s Selector) Bandwidth(xs, ws []float64, kernel *GaussianKernel) (float64, error) {
	switch s.Method {
	case MethodFixed:
		if s.Value <= 0 || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return 0, fmt.Errorf("%w: fixed bandwidth %v", common.ErrorInvalidConfig, s.Value)
		}
		return s.Value, nil
	case MethodScott, MethodSilverman, MethodReference, "":
	default:
		return 0, fmt.Errorf("%w: unknown bandwidth method %q", common.ErrorInvalidConfig, s.Method)
	}

	if len(xs) == 0 {
		return 0, fmt.Errorf("%w: no samples for bandwidth", common.ErrorInsufficientData)
	}

	n := effectiveSize(xs, ws)
	scale := math.Pow(n, -0.2)
	stdDev := stat.StdDev(xs, ws)
	if math.IsNaN(stdDev) {
		stdDev = 0
	}

	switch s.Method {
	case MethodSilverman:
		return 1.06 * stdDev * scale, nil
	case MethodReference:
		return kernel.NormalReferenceConstant() * selectSigma(xs, ws, stdDev) * scale, nil
	}
	return 1.06 * selectSigma(xs, ws, stdDev) * scale, nil
}

// selectSigma is the robust spread estimate shared by the Scott and
// normal-reference rules: the smaller of the standard deviation and the
// IQR scaled to a Gaussian's sigma.
func selectSigma(xs, ws []float64, stdDev float64) float64 {
	const normalize = 1.349

	q75, err := bins.WeightedQuantile(0.75, xs, ws)
	if err != nil {
		return stdDev
	}
	q25, err := bins.WeightedQuantile(0.25, xs, ws)
	if err != nil {
		return stdDev
	}
	iqr := (q75 - q25) / normalize

	if iqr > 0 && iqr < stdDev {
		return iqr
	}
	return stdDev
}

func effectiveSize(xs, ws []float64) float64 {
	if ws == nil {
		return float64(len(xs))
	}
	var sum, sumSq float64
	for _, w := range ws {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return float64(len(xs))
	}
	return sum * sum / sumSq
}
