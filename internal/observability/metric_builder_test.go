package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var (
	errTestCreation = errors.New("test: creation failed")
	errTestSecond   = errors.New("second error")
)

var testGauge = instrument{name: "test.gauge", desc: "A test gauge", unit: "{item}"}

// failingMeter fails to create the instrument named failOn and counts callback registrations.
type failingMeter struct {
	noopmetric.Meter

	failOn    string
	callbacks int
}

func (m *failingMeter) Int64ObservableGauge(
	name string, _ ...metric.Int64ObservableGaugeOption,
) (metric.Int64ObservableGauge, error) {
	if name == m.failOn {
		return noopmetric.Int64ObservableGauge{}, errTestCreation
	}

	return noopmetric.Int64ObservableGauge{}, nil
}

func (m *failingMeter) RegisterCallback(metric.Callback, ...metric.Observable) (metric.Registration, error) {
	m.callbacks++

	return nil, nil
}

func TestMetricBuilder_HistogramUsesDescribedBounds(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	b := newMetricBuilder(mp.Meter("test"))

	h := b.histogram(instAttemptDuration)
	require.NoError(t, b.err)

	h.Record(context.Background(), 0.2)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	got := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, instAttemptDuration.name, got.Name)
	assert.Equal(t, instAttemptDuration.unit, got.Unit)

	hist, ok := got.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, instAttemptDuration.bounds, hist.DataPoints[0].Bounds)
}

func TestMetricBuilder_RegisterObservesCreatedInstruments(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	b := newMetricBuilder(mp.Meter("test"))

	g := b.gauge(testGauge)
	require.Len(t, b.observables, 1)

	require.NoError(t, b.register(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(g, 7)

		return nil
	}))

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	gauge, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}

func TestMetricBuilder_RegisterReturnsCreationError(t *testing.T) {
	t.Parallel()

	mt := &failingMeter{failOn: testGauge.name}
	b := newMetricBuilder(mt)

	b.gauge(testGauge)
	b.gauge(instrument{name: "test.other", desc: "Another gauge", unit: "{item}"})

	err := b.register(func(context.Context, metric.Observer) error { return nil })
	require.ErrorIs(t, err, errTestCreation)
	assert.Contains(t, err.Error(), testGauge.name)
	assert.Len(t, b.observables, 1)
	assert.Zero(t, mt.callbacks)
}

func TestMetricBuilder_RegisterWithoutObservables(t *testing.T) {
	t.Parallel()

	mt := &failingMeter{}
	b := newMetricBuilder(mt)

	require.NoError(t, b.register(func(context.Context, metric.Observer) error { return nil }))
	assert.Zero(t, mt.callbacks)
}

func TestMetricBuilder_SetErrKeepsFirst(t *testing.T) {
	t.Parallel()

	b := newMetricBuilder(noopmetric.NewMeterProvider().Meter("test"))

	b.setErr("no.problem", nil)
	require.NoError(t, b.err)

	b.setErr("first.metric", errTestCreation)
	b.setErr("second.metric", errTestSecond)

	require.ErrorIs(t, b.err, errTestCreation)
	assert.NotErrorIs(t, b.err, errTestSecond)
	assert.Contains(t, b.err.Error(), "first.metric")
}

func TestInstruments_FollowNamingConventions(t *testing.T) {
	t.Parallel()

	all := append(append([]instrument{}, checkpointInstruments...), runtimeInstruments...)
	seen := make(map[string]bool, len(all))

	for _, in := range all {
		t.Run(in.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, strings.HasPrefix(in.name, "checkstat."), "namespace")
			assert.NotEmpty(t, in.desc)
			assert.NotEmpty(t, in.unit)

			for idx := 1; idx < len(in.bounds); idx++ {
				assert.Less(t, in.bounds[idx-1], in.bounds[idx], "bounds must increase")
			}
		})

		assert.False(t, seen[in.name], "duplicate instrument %s", in.name)
		seen[in.name] = true
	}
}
