package stats

import "math"

// Aggregate is an append-only min/max/sum accumulator over a series of
// non-negative int64 observations. The zero value is ready to use.
//
// Negative observations are ignored: callers use them to mark a value as
// unknown. Sum saturates at math.MaxInt64; past that point Average
// under-reports. For byte sizes that boundary is ~9.2 EB of summed state, for
// millisecond durations ~292 million years of summed time.
type Aggregate struct {
	count int64
	sum   int64
	min   int64
	max   int64
}

// Add folds one observation into the aggregate in O(1).
func (a *Aggregate) Add(value int64) {
	if value < 0 {
		return
	}

	if a.count == 0 {
		a.min = value
		a.max = value
	} else {
		a.min = min(a.min, value)
		a.max = max(a.max, value)
	}

	a.count++
	a.sum = saturatingAdd(a.sum, value)
}

// Count returns the number of folded observations.
func (a Aggregate) Count() int64 { return a.count }

// Sum returns the saturated sum of all folded observations.
func (a Aggregate) Sum() int64 { return a.sum }

// Min returns the smallest observation, or 0 when nothing was folded.
func (a Aggregate) Min() int64 { return a.min }

// Max returns the largest observation, or 0 when nothing was folded.
func (a Aggregate) Max() int64 { return a.max }

// Average returns Sum/Count, or 0 when nothing was folded.
func (a Aggregate) Average() float64 {
	if a.count == 0 {
		return 0
	}

	return float64(a.sum) / float64(a.count)
}

// Saturated reports whether Sum has hit math.MaxInt64.
func (a Aggregate) Saturated() bool { return a.sum == math.MaxInt64 }

// saturatingAdd adds two non-negative values, clamping at math.MaxInt64.
func saturatingAdd(sum, value int64) int64 {
	if sum > math.MaxInt64-value {
		return math.MaxInt64
	}

	return sum + value
}
