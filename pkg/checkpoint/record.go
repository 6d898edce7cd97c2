package checkpoint

import "time"

// Status is the lifecycle state of a checkpoint attempt.
type Status int

// Checkpoint statuses.
const (
	StatusInProgress Status = iota
	StatusCompleted
	StatusFailed
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record describes one checkpoint attempt. Which fields are meaningful depends
// on Status:
//
//   - in progress: ID, TriggeredAt
//   - completed: plus FinishedAt, StateSize, Duration, alignment metrics,
//     Savepoint and ExternalPath
//   - failed: plus FinishedAt, Duration and FailureCause
//
// A pending record is never mutated; reaching a terminal status replaces it.
type Record struct {
	TriggeredAt       time.Time
	FinishedAt        time.Time
	ExternalPath      string
	FailureCause      string
	ID                int64
	StateSize         int64
	AlignmentBuffered int64
	Duration          time.Duration
	AlignmentDuration time.Duration
	Status            Status
	Savepoint         bool
}

// Externalized reports whether the checkpoint was written to external storage.
func (r Record) Externalized() bool {
	return r.ExternalPath != ""
}

// Completion carries the metrics of a successfully completed checkpoint.
type Completion struct {
	// CompletedAt is when the coordinator finalized the checkpoint.
	CompletedAt time.Time

	// ExternalPath is the external storage location, empty when not externalized.
	ExternalPath string

	// StateSize is the total checkpointed state in bytes.
	StateSize int64

	// AlignmentBuffered is the number of bytes buffered during barrier alignment.
	// Negative means unknown.
	AlignmentBuffered int64

	// Duration is the end-to-end duration. Zero derives it from the trigger time.
	Duration time.Duration

	// AlignmentDuration is the time spent aligning barriers. Negative means unknown.
	AlignmentDuration time.Duration

	// Savepoint marks an operator-triggered savepoint.
	Savepoint bool
}

// Restore describes a job restore from a checkpoint or savepoint.
type Restore struct {
	RestoredAt   time.Time
	ExternalPath string
	CheckpointID int64
	Savepoint    bool
}

// RestoredStats is the latest restore as seen in a snapshot.
type RestoredStats struct {
	RestoredAt   time.Time
	ExternalPath string
	CheckpointID int64
	Savepoint    bool
}

func pendingRecord(id int64, triggeredAt time.Time) Record {
	return Record{
		ID:          id,
		Status:      StatusInProgress,
		TriggeredAt: triggeredAt,
	}
}

func completedRecord(id int64, triggeredAt time.Time, c Completion) Record {
	duration := c.Duration
	if duration == 0 && !c.CompletedAt.IsZero() && !triggeredAt.IsZero() {
		duration = c.CompletedAt.Sub(triggeredAt)
	}

	return Record{
		ID:                id,
		Status:            StatusCompleted,
		TriggeredAt:       triggeredAt,
		FinishedAt:        c.CompletedAt,
		StateSize:         c.StateSize,
		Duration:          duration,
		AlignmentBuffered: c.AlignmentBuffered,
		AlignmentDuration: c.AlignmentDuration,
		Savepoint:         c.Savepoint,
		ExternalPath:      c.ExternalPath,
	}
}

func failedRecord(id int64, triggeredAt time.Time, cause string, failedAt time.Time) Record {
	var duration time.Duration
	if !failedAt.IsZero() && !triggeredAt.IsZero() {
		duration = failedAt.Sub(triggeredAt)
	}

	return Record{
		ID:           id,
		Status:       StatusFailed,
		TriggeredAt:  triggeredAt,
		FinishedAt:   failedAt,
		Duration:     duration,
		FailureCause: cause,
	}
}
