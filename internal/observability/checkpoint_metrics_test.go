package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/checkstat/internal/jobs"
	"github.com/Sumatoshi-tech/checkstat/internal/observability"
	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
)

var epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func byJob[N int64 | float64](dps []metricdata.DataPoint[N]) map[string]N {
	out := make(map[string]N, len(dps))

	for _, dp := range dps {
		if v, ok := dp.Attributes.Value("job_id"); ok {
			out[v.AsString()] = dp.Value
		}
	}

	return out
}

func newCheckpointMeter(t *testing.T, source observability.TrackerSource) (*observability.CheckpointMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	cm, err := observability.NewCheckpointMetrics(mp.Meter("test"), source)
	require.NoError(t, err)

	return cm, reader
}

func TestCheckpointMetrics_ObservesSnapshots(t *testing.T) {
	t.Parallel()

	tracker := checkpoint.NewTracker()

	require.NoError(t, tracker.ReportTriggered(1, epoch))
	require.NoError(t, tracker.ReportCompleted(1, checkpoint.Completion{
		CompletedAt: epoch.Add(300 * time.Millisecond),
		StateSize:   4096,
	}))
	require.NoError(t, tracker.ReportTriggered(2, epoch.Add(time.Second)))
	require.NoError(t, tracker.ReportFailed(2, "declined", epoch.Add(2*time.Second)))
	require.NoError(t, tracker.ReportTriggered(3, epoch.Add(3*time.Second)))

	registry := jobs.NewRegistry()
	require.NoError(t, registry.Register("wordcount", tracker))
	require.NoError(t, registry.Register("batch", nil))

	_, reader := newCheckpointMeter(t, registry)
	rm := collect(t, reader)

	counters := map[string]int64{
		"checkstat.checkpoints.triggered": 3,
		"checkstat.checkpoints.completed": 1,
		"checkstat.checkpoints.failed":    1,
		"checkstat.checkpoints.restored":  0,
	}

	for name, want := range counters {
		m := findMetric(rm, name)
		require.NotNil(t, m, name)

		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok, name)
		assert.Equal(t, map[string]int64{"wordcount": want}, byJob(sum.DataPoints), name)
	}

	gauges := map[string]int64{
		"checkstat.checkpoints.in_progress":                1,
		"checkstat.checkpoint.latest_completed.state_size": 4096,
		"checkstat.checkpoint.latest_completed.duration":   300,
	}

	for name, want := range gauges {
		m := findMetric(rm, name)
		require.NotNil(t, m, name)

		gauge, ok := m.Data.(metricdata.Gauge[int64])
		require.True(t, ok, name)
		assert.Equal(t, map[string]int64{"wordcount": want}, byJob(gauge.DataPoints), name)
	}
}

func TestCheckpointMetrics_NoLatestBeforeCompletion(t *testing.T) {
	t.Parallel()

	tracker := checkpoint.NewTracker()
	require.NoError(t, tracker.ReportTriggered(1, epoch))

	registry := jobs.NewRegistry()
	require.NoError(t, registry.Register("job", tracker))

	_, reader := newCheckpointMeter(t, registry)
	rm := collect(t, reader)

	assert.Nil(t, findMetric(rm, "checkstat.checkpoint.latest_completed.state_size"))
	assert.NotNil(t, findMetric(rm, "checkstat.checkpoints.in_progress"))
}

func TestCheckpointMetrics_RecordsAttemptsByOutcome(t *testing.T) {
	t.Parallel()

	cm, reader := newCheckpointMeter(t, nil)
	ctx := context.Background()

	cm.CheckpointCompleted(ctx, "job", 2*time.Second, 1<<20)
	cm.CheckpointCompleted(ctx, "job", 4*time.Second, 1<<21)
	cm.CheckpointFailed(ctx, "job", 500*time.Millisecond)

	rm := collect(t, reader)

	duration := findMetric(rm, "checkstat.checkpoint.duration.seconds")
	require.NotNil(t, duration)

	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)

	byOutcome := make(map[string]metricdata.HistogramDataPoint[float64], len(hist.DataPoints))

	for _, dp := range hist.DataPoints {
		job, ok := dp.Attributes.Value("job_id")
		require.True(t, ok)
		assert.Equal(t, "job", job.AsString())

		outcome, ok := dp.Attributes.Value("outcome")
		require.True(t, ok)

		byOutcome[outcome.AsString()] = dp
	}

	assert.Equal(t, uint64(2), byOutcome["completed"].Count)
	assert.InDelta(t, 6.0, byOutcome["completed"].Sum, 1e-9)
	assert.Equal(t, uint64(1), byOutcome["failed"].Count)
	assert.InDelta(t, 0.5, byOutcome["failed"].Sum, 1e-9)

	size := findMetric(rm, "checkstat.checkpoint.state_size.bytes")
	require.NotNil(t, size)

	sizes, ok := size.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, sizes.DataPoints, 1)
	assert.Equal(t, uint64(2), sizes.DataPoints[0].Count)
	assert.Equal(t, []float64{1 << 10, 1 << 13, 1 << 16, 1 << 19, 1 << 22, 1 << 25, 1 << 28, 1 << 31, 1 << 34, 1 << 36},
		sizes.DataPoints[0].Bounds)

	assert.Nil(t, findMetric(rm, "checkstat.checkpoint.failures.total"))
}
