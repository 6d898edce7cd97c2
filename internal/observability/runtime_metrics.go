package observability

import (
	"context"
	"fmt"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

var (
	instGoroutines = instrument{
		name: "checkstat.runtime.goroutines", desc: "Current number of live goroutines", unit: "{goroutine}",
	}
	instHeapBytes = instrument{
		name: "checkstat.runtime.heap.objects.bytes", desc: "Heap memory occupied by live and unswept objects", unit: "By",
	}
	instGCCycles = instrument{
		name: "checkstat.runtime.gc.cycles", desc: "Completed GC cycles since process start", unit: "{cycle}",
	}
)

var runtimeInstruments = []instrument{instGoroutines, instHeapBytes, instGCCycles}

const (
	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleHeapBytes  = "/memory/classes/heap/objects:bytes"
	sampleGCCycles   = "/gc/cycles/total:gc-cycles"
)

// RuntimeMetrics exposes Go runtime samples as OTel instruments.
// Samples are read from runtime/metrics on each collection cycle.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	heapBytes  metric.Int64ObservableGauge
	gcCycles   metric.Int64ObservableCounter
}

// NewRuntimeMetrics creates the runtime instruments and registers their callback.
func NewRuntimeMetrics(mt metric.Meter) (*RuntimeMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RuntimeMetrics{
		goroutines: b.gauge(instGoroutines),
		heapBytes:  b.gauge(instHeapBytes),
		gcCycles:   b.observableCounter(instGCCycles),
	}

	err := b.register(rm.observe)
	if err != nil {
		return nil, fmt.Errorf("runtime metrics: %w", err)
	}

	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleHeapBytes},
		{Name: sampleGCCycles},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(rm.goroutines, val)
		case sampleHeapBytes:
			obs.ObserveInt64(rm.heapBytes, val)
		case sampleGCCycles:
			obs.ObserveInt64(rm.gcCycles, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value,
// handling both Uint64 and Float64 kinds.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	case runtimemetrics.KindBad, runtimemetrics.KindFloat64Histogram:
		return 0, false
	default:
		return 0, false
	}
}
