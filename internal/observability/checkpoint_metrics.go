package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
)

const (
	attrJobID   = "job_id"
	attrOutcome = "outcome"

	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
)

var (
	instTriggered = instrument{name: "checkstat.checkpoints.triggered", desc: "Checkpoints triggered", unit: "{checkpoint}"}
	instCompleted = instrument{name: "checkstat.checkpoints.completed", desc: "Checkpoints completed", unit: "{checkpoint}"}
	instFailed    = instrument{name: "checkstat.checkpoints.failed", desc: "Checkpoints failed", unit: "{checkpoint}"}
	instRestored  = instrument{name: "checkstat.checkpoints.restored", desc: "Restores from a checkpoint", unit: "{restore}"}

	instInProgress = instrument{
		name: "checkstat.checkpoints.in_progress", desc: "Checkpoints currently in progress", unit: "{checkpoint}",
	}
	instLatestStateSize = instrument{
		name: "checkstat.checkpoint.latest_completed.state_size",
		desc: "State size of the latest completed checkpoint", unit: "By",
	}
	instLatestDuration = instrument{
		name: "checkstat.checkpoint.latest_completed.duration",
		desc: "Duration of the latest completed checkpoint", unit: "ms",
	}

	// 10ms to 10min.
	instAttemptDuration = instrument{
		name: "checkstat.checkpoint.duration.seconds",
		desc: "Duration of finished checkpoint attempts by outcome", unit: "s",
		bounds: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}
	// 1KiB to 64GiB in powers of 8.
	instStateSize = instrument{
		name: "checkstat.checkpoint.state_size.bytes",
		desc: "State size of completed checkpoints", unit: "By",
		bounds: []float64{1 << 10, 1 << 13, 1 << 16, 1 << 19, 1 << 22, 1 << 25, 1 << 28, 1 << 31, 1 << 34, 1 << 36},
	}
)

// checkpointInstruments lists every instrument CheckpointMetrics creates.
var checkpointInstruments = []instrument{
	instTriggered, instCompleted, instFailed, instRestored,
	instInProgress, instLatestStateSize, instLatestDuration,
	instAttemptDuration, instStateSize,
}

// TrackerSource enumerates the trackers of jobs with checkpointing enabled.
type TrackerSource interface {
	Each(fn func(jobID string, tracker *checkpoint.Tracker))
}

// CheckpointMetrics exports checkpoint statistics per job.
//
// Counts and latest-completed values are observed from tracker snapshots on
// every collection, so they cover every registered job. Attempt durations and
// state sizes are distributions the snapshot cannot reconstruct; they are
// recorded as attempts finish, through CheckpointCompleted and CheckpointFailed.
type CheckpointMetrics struct {
	triggered       metric.Int64ObservableCounter
	completed       metric.Int64ObservableCounter
	failed          metric.Int64ObservableCounter
	restored        metric.Int64ObservableCounter
	inProgress      metric.Int64ObservableGauge
	latestStateSize metric.Int64ObservableGauge
	latestDuration  metric.Int64ObservableGauge
	duration        metric.Float64Histogram
	stateSize       metric.Float64Histogram
	source          TrackerSource
}

// NewCheckpointMetrics creates the instruments and registers the snapshot callback.
func NewCheckpointMetrics(mt metric.Meter, source TrackerSource) (*CheckpointMetrics, error) {
	b := newMetricBuilder(mt)

	cm := &CheckpointMetrics{
		triggered:       b.observableCounter(instTriggered),
		completed:       b.observableCounter(instCompleted),
		failed:          b.observableCounter(instFailed),
		restored:        b.observableCounter(instRestored),
		inProgress:      b.gauge(instInProgress),
		latestStateSize: b.gauge(instLatestStateSize),
		latestDuration:  b.gauge(instLatestDuration),
		duration:        b.histogram(instAttemptDuration),
		stateSize:       b.histogram(instStateSize),
		source:          source,
	}

	err := b.register(cm.observe)
	if err != nil {
		return nil, fmt.Errorf("checkpoint metrics: %w", err)
	}

	return cm, nil
}

// CheckpointCompleted records the duration and state size of a completed checkpoint.
func (cm *CheckpointMetrics) CheckpointCompleted(ctx context.Context, jobID string, duration time.Duration, stateSize int64) {
	cm.duration.Record(ctx, duration.Seconds(), jobAttributes(jobID, outcomeCompleted))
	cm.stateSize.Record(ctx, float64(stateSize), jobAttributes(jobID, ""))
}

// CheckpointFailed records how long a failed checkpoint ran before it failed.
func (cm *CheckpointMetrics) CheckpointFailed(ctx context.Context, jobID string, duration time.Duration) {
	cm.duration.Record(ctx, duration.Seconds(), jobAttributes(jobID, outcomeFailed))
}

func (cm *CheckpointMetrics) observe(_ context.Context, obs metric.Observer) error {
	if cm.source == nil {
		return nil
	}

	cm.source.Each(func(jobID string, tracker *checkpoint.Tracker) {
		snap := tracker.Snapshot()
		attrs := jobAttributes(jobID, "")

		obs.ObserveInt64(cm.triggered, snap.Counts.Triggered, attrs)
		obs.ObserveInt64(cm.completed, snap.Counts.Completed, attrs)
		obs.ObserveInt64(cm.failed, snap.Counts.Failed, attrs)
		obs.ObserveInt64(cm.restored, snap.Counts.Restored, attrs)
		obs.ObserveInt64(cm.inProgress, snap.Counts.InProgress(), attrs)

		if latest := snap.LatestCompleted; latest != nil {
			obs.ObserveInt64(cm.latestStateSize, latest.StateSize, attrs)
			obs.ObserveInt64(cm.latestDuration, latest.Duration.Milliseconds(), attrs)
		}
	})

	return nil
}

// jobAttributes tags a measurement with the job and, when set, the outcome.
func jobAttributes(jobID, outcome string) metric.MeasurementOption {
	if outcome == "" {
		return metric.WithAttributes(attribute.String(attrJobID, jobID))
	}

	return metric.WithAttributes(attribute.String(attrJobID, jobID), attribute.String(attrOutcome, outcome))
}
