package model

import "math"

// DensityMap is an estimated posterior mass per bin, aligned to one grid
// (1D) or two grids (2D). Values are stored flattened in row-major order
// and, except for an all-empty map, sum to 1.
type DensityMap struct {
	Grids  []Grid
	Values []float64
}

// At returns the mass of 1D bin i.
func (m *DensityMap) At(i int) float64 {
	return m.Values[i]
}

// At2 returns the mass of 2D bin (i, j), i on the first axis.
func (m *DensityMap) At2(i, j int) float64 {
	return m.Values[i*m.Grids[1].NBins+j]
}

// Total returns the summed mass of the map.
func (m *DensityMap) Total() float64 {
	var sum float64
	for _, v := range m.Values {
		sum += v
	}
	return sum
}

// ProfileMap is the minimum negative log-likelihood observed per bin,
// aligned to one or two grids and flattened row-major. Bins that received
// no samples hold +Inf.
type ProfileMap struct {
	Grids []Grid
	NLL   []float64

	// MinNLL is the smallest finite NLL on the map, +Inf if the map is
	// entirely empty.
	MinNLL float64

	// DeltaChiSq is 2*(NLL - MinNLL) per bin, +Inf for empty bins.
	DeltaChiSq []float64

	// Like is the profile likelihood exp(-DeltaChiSq/2), normalised so
	// its maximum is 1; empty bins hold 0.
	Like []float64
}

// At returns the profile NLL of 1D bin i.
func (m *ProfileMap) At(i int) float64 {
	return m.NLL[i]
}

// At2 returns the profile NLL of 2D bin (i, j).
func (m *ProfileMap) At2(i, j int) float64 {
	return m.NLL[i*m.Grids[1].NBins+j]
}

// Empty reports whether no sample landed in any bin.
func (m *ProfileMap) Empty() bool {
	return math.IsInf(m.MinNLL, 1)
}
