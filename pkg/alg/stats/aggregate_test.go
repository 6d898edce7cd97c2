package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_ZeroValue(t *testing.T) {
	t.Parallel()

	var agg Aggregate

	assert.Equal(t, int64(0), agg.Count())
	assert.Equal(t, int64(0), agg.Min())
	assert.Equal(t, int64(0), agg.Max())
	assert.Equal(t, int64(0), agg.Sum())
	assert.InDelta(t, 0, agg.Average(), 0.0001)
}

func TestAggregate_Add(t *testing.T) {
	t.Parallel()

	var agg Aggregate

	agg.Add(100)
	agg.Add(50)
	agg.Add(200)

	assert.Equal(t, int64(3), agg.Count())
	assert.Equal(t, int64(50), agg.Min())
	assert.Equal(t, int64(200), agg.Max())
	assert.Equal(t, int64(350), agg.Sum())
	assert.InDelta(t, 116.6667, agg.Average(), 0.001)
}

func TestAggregate_FirstValueSetsMinAndMax(t *testing.T) {
	t.Parallel()

	var agg Aggregate

	agg.Add(7)

	assert.Equal(t, int64(7), agg.Min())
	assert.Equal(t, int64(7), agg.Max())
}

func TestAggregate_ZeroIsAValidObservation(t *testing.T) {
	t.Parallel()

	var agg Aggregate

	agg.Add(10)
	agg.Add(0)

	assert.Equal(t, int64(2), agg.Count())
	assert.Equal(t, int64(0), agg.Min())
	assert.InDelta(t, 5, agg.Average(), 0.0001)
}

func TestAggregate_IgnoresNegative(t *testing.T) {
	t.Parallel()

	var agg Aggregate

	agg.Add(-1)
	agg.Add(10)
	agg.Add(-100)

	assert.Equal(t, int64(1), agg.Count())
	assert.Equal(t, int64(10), agg.Min())
	assert.Equal(t, int64(10), agg.Max())
}

func TestAggregate_SumSaturates(t *testing.T) {
	t.Parallel()

	var agg Aggregate

	agg.Add(math.MaxInt64 - 1)
	assert.False(t, agg.Saturated())

	agg.Add(10)

	assert.True(t, agg.Saturated())
	assert.Equal(t, int64(math.MaxInt64), agg.Sum())
	assert.Equal(t, int64(2), agg.Count())
	assert.Equal(t, int64(math.MaxInt64-1), agg.Max())
}

func TestAggregate_BoundsHoldForRandomSeries(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))

	var (
		agg Aggregate
		sum int64
	)

	values := make([]int64, 0, 500)

	for range 500 {
		v := rng.Int64N(1_000_000)
		values = append(values, v)
		sum += v

		agg.Add(v)
	}

	for _, v := range values {
		assert.LessOrEqual(t, agg.Min(), v)
		assert.GreaterOrEqual(t, agg.Max(), v)
	}

	assert.Equal(t, sum, agg.Sum())
	assert.InDelta(t, float64(sum)/float64(len(values)), agg.Average(), 0.0001)
}
