package common

import "errors"

var (
	// ErrorInvalidData reports malformed or inconsistent sample input:
	// dimension mismatch, negative or non-finite weights, non-finite
	// likelihoods.
	ErrorInvalidData = errors.New("invalid sample data")

	// ErrorInsufficientData reports too few effective samples for a
	// statistic, or a level solve over a map with zero total mass.
	ErrorInsufficientData = errors.New("insufficient sample data")

	// ErrorInvalidConfig reports an option value outside its legal range,
	// e.g. alpha outside (0,1) or a non-positive bin count.
	ErrorInvalidConfig = errors.New("invalid configuration")
)
