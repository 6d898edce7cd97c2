// Package stats provides running aggregates and small statistical helpers
// used to summarise checkpoint metrics.
package stats

import (
	"math"
	"slices"
)

// Number is the set of value types the helpers accept.
type Number interface {
	~int64 | ~float64
}

// Quantiles returns the qs-quantiles of values, interpolating linearly between
// the closest ranks. Each q is clamped to [0, 1]. values is not modified.
// Returns nil for an empty slice.
func Quantiles[N Number](values []N, qs ...float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	out := make([]float64, len(qs))

	for i, q := range qs {
		out[i] = rank(sorted, min(max(q, 0), 1))
	}

	return out
}

func rank[N Number](sorted []N, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))

	if lower == upper {
		return float64(sorted[lower])
	}

	frac := pos - float64(lower)

	return float64(sorted[lower])*(1-frac) + float64(sorted[upper])*frac
}
