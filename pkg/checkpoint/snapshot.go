package checkpoint

import (
	"time"

	"github.com/Sumatoshi-tech/checkstat/pkg/alg/stats"
)

// Counts holds lifetime checkpoint counters. All counters only grow.
type Counts struct {
	Triggered int64
	Completed int64
	Failed    int64
	Restored  int64
}

// InProgress returns the number of triggered checkpoints without a terminal status.
func (c Counts) InProgress() int64 {
	return c.Triggered - c.Completed - c.Failed
}

// Summary aggregates the metrics of all completed checkpoints.
// Durations are folded in milliseconds, sizes in bytes. Unknown (negative)
// values are not folded.
type Summary struct {
	StateSize         stats.Aggregate
	Duration          stats.Aggregate
	AlignmentBuffered stats.Aggregate
	AlignmentDuration stats.Aggregate
}

// Snapshot is a point-in-time copy of a tracker's state. It shares no memory
// with the tracker: later reports are never visible through it.
type Snapshot struct {
	TakenAt time.Time

	LatestCompleted *Record
	LatestSavepoint *Record
	LatestFailed    *Record
	LatestRestored  *RestoredStats

	// History is ordered oldest first.
	History []Record

	Summary Summary
	Counts  Counts

	HistorySize int
}
