package observability

import (
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/metric"
)

// instrument describes one OTel instrument. Bounds apply to histograms only.
type instrument struct {
	name   string
	desc   string
	unit   string
	bounds []float64
}

// metricBuilder creates instruments from their descriptions. It keeps the
// first creation error and the observable instruments created so far, so a
// metrics type needs one error check and one callback registration.
type metricBuilder struct {
	meter       metric.Meter
	err         error
	observables []metric.Observable
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) histogram(in instrument) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(in.desc),
		metric.WithUnit(in.unit),
	}

	if len(in.bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(slices.Clone(in.bounds)...))
	}

	h, err := b.meter.Float64Histogram(in.name, opts...)
	b.setErr(in.name, err)

	return h
}

func (b *metricBuilder) gauge(in instrument) metric.Int64ObservableGauge {
	g, err := b.meter.Int64ObservableGauge(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
	b.observe(in.name, g, err)

	return g
}

func (b *metricBuilder) observableCounter(in instrument) metric.Int64ObservableCounter {
	c, err := b.meter.Int64ObservableCounter(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
	b.observe(in.name, c, err)

	return c
}

func (b *metricBuilder) observe(name string, o metric.Observable, err error) {
	if err != nil {
		b.setErr(name, err)

		return
	}

	b.observables = append(b.observables, o)
}

// register returns the first creation error, if any. Otherwise it registers
// cb for every observable instrument the builder created.
func (b *metricBuilder) register(cb metric.Callback) error {
	if b.err != nil {
		return b.err
	}

	if len(b.observables) == 0 {
		return nil
	}

	_, err := b.meter.RegisterCallback(cb, b.observables...)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}

	return nil
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
