// Package checkpoint tracks the lifecycle and aggregate statistics of a job's
// checkpoints and produces immutable snapshots of them for monitoring.
//
// A Tracker is created once per job with checkpointing enabled. Jobs without
// checkpointing have no tracker at all; consumers must treat that absence as
// "not enabled" rather than as an empty snapshot.
package checkpoint

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/checkstat/pkg/alg/stats"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithHistorySize sets how many recent checkpoints are retained in snapshots.
func WithHistorySize(n int) Option {
	return func(t *Tracker) {
		t.historySize = n
	}
}

// WithLogger sets the logger used for accepted and rejected reports.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithClock overrides the time source used for snapshot and restore timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker accumulates checkpoint lifecycle events reported by a checkpoint
// coordinator. All methods are safe for concurrent use. Each report is applied
// atomically with respect to Snapshot; a rejected report changes nothing.
//
// Completion or failure of an id must be reported after its trigger. The
// tracker does not order reports for different ids.
type Tracker struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	history  *History
	restored *RestoredStats
	summary  Summary
	counts   Counts

	historySize int
}

// NewTracker creates a tracker. It panics if the history size is negative.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		logger:      slog.Default(),
		now:         time.Now,
		historySize: DefaultHistorySize,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.history = NewHistory(t.historySize)

	return t
}

// ReportTriggered records that checkpoint id was triggered at triggeredAt.
func (t *Tracker) ReportTriggered(id int64, triggeredAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.history.RecordTriggered(id, triggeredAt)
	if err != nil {
		t.reject(id, StatusInProgress, err)

		return fmt.Errorf("report triggered: %w", err)
	}

	t.counts.Triggered++

	t.logger.Debug("checkpoint triggered", "checkpoint_id", id)

	return nil
}

// ReportCompleted records the successful completion of pending checkpoint id
// and folds its metrics into the summary.
func (t *Tracker) ReportCompleted(id int64, completion Completion) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.history.RecordCompleted(id, completion)
	if err != nil {
		t.reject(id, StatusCompleted, err)

		return fmt.Errorf("report completed: %w", err)
	}

	t.counts.Completed++
	t.summary.StateSize.Add(rec.StateSize)
	t.summary.AlignmentBuffered.Add(rec.AlignmentBuffered)
	addMillis(&t.summary.Duration, rec.Duration)
	addMillis(&t.summary.AlignmentDuration, rec.AlignmentDuration)

	t.logger.Debug("checkpoint completed",
		"checkpoint_id", id,
		"state_size", rec.StateSize,
		"duration", rec.Duration,
		"savepoint", rec.Savepoint,
	)

	return nil
}

// ReportFailed records the failure of pending checkpoint id. Failed
// checkpoints are not folded into the summary.
func (t *Tracker) ReportFailed(id int64, cause string, failedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.history.RecordFailed(id, cause, failedAt)
	if err != nil {
		t.reject(id, StatusFailed, err)

		return fmt.Errorf("report failed: %w", err)
	}

	t.counts.Failed++

	t.logger.Debug("checkpoint failed", "checkpoint_id", id, "cause", cause)

	return nil
}

// ReportRestored records a restore and replaces the latest restore. It does
// not touch the triggered, completed or failed counts. A restore needs either
// an external path or a checkpoint completed by this tracker.
func (t *Tracker) ReportRestored(restore Restore) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if restore.ExternalPath == "" && t.history.latestCompleted == nil {
		err := fmt.Errorf("%w: %d", ErrNothingToRestore, restore.CheckpointID)
		t.logger.Warn("checkpoint report rejected",
			"checkpoint_id", restore.CheckpointID, "event", "restored", "error", err)

		return fmt.Errorf("report restored: %w", err)
	}

	restoredAt := restore.RestoredAt
	if restoredAt.IsZero() {
		restoredAt = t.now()
	}

	t.counts.Restored++
	t.restored = &RestoredStats{
		CheckpointID: restore.CheckpointID,
		RestoredAt:   restoredAt,
		Savepoint:    restore.Savepoint,
		ExternalPath: restore.ExternalPath,
	}

	t.logger.Info("checkpoint restored",
		"checkpoint_id", restore.CheckpointID,
		"savepoint", restore.Savepoint,
		"external_path", restore.ExternalPath,
	)

	return nil
}

// Snapshot returns a consistent copy of the tracker state. It never fails.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		TakenAt:     t.now(),
		Counts:      t.counts,
		Summary:     t.summary,
		History:     t.history.Entries(),
		HistorySize: t.history.Capacity(),
	}

	if rec, ok := t.history.LatestCompleted(); ok {
		snap.LatestCompleted = &rec
	}

	if rec, ok := t.history.LatestSavepoint(); ok {
		snap.LatestSavepoint = &rec
	}

	if rec, ok := t.history.LatestFailed(); ok {
		snap.LatestFailed = &rec
	}

	if t.restored != nil {
		restored := *t.restored
		snap.LatestRestored = &restored
	}

	return snap
}

func (t *Tracker) reject(id int64, status Status, err error) {
	t.logger.Warn("checkpoint report rejected",
		"checkpoint_id", id, "event", status.String(), "error", err)
}

// addMillis folds d in milliseconds. The sign is checked before conversion
// because Milliseconds truncates sub-millisecond negatives to zero.
func addMillis(agg *stats.Aggregate, d time.Duration) {
	if d < 0 {
		return
	}

	agg.Add(d.Milliseconds())
}
