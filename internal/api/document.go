// Package api serves checkpoint statistics snapshots as JSON documents over HTTP.
package api

import (
	"time"

	"github.com/Sumatoshi-tech/checkstat/pkg/alg/stats"
	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
)

// Statistics is the checkpoint statistics document of one job.
type Statistics struct {
	Counts  Counts                 `json:"counts"  yaml:"counts"`
	Summary Summary                `json:"summary" yaml:"summary"`
	Latest  LatestCheckpoints      `json:"latest"  yaml:"latest"`
	History []CheckpointStatistics `json:"history" yaml:"history"`
}

// Counts mirrors checkpoint.Counts.
type Counts struct {
	Restored   int64 `json:"restored"    yaml:"restored"`
	Total      int64 `json:"total"       yaml:"total"`
	InProgress int64 `json:"in_progress" yaml:"in_progress"`
	Completed  int64 `json:"completed"   yaml:"completed"`
	Failed     int64 `json:"failed"      yaml:"failed"`
}

// MinMaxAvg is the rendered form of an aggregate.
type MinMaxAvg struct {
	Min int64   `json:"min" yaml:"min"`
	Max int64   `json:"max" yaml:"max"`
	Avg float64 `json:"avg" yaml:"avg"`
}

// Summary holds aggregates over all completed checkpoints.
// Sizes are bytes, durations milliseconds.
type Summary struct {
	StateSize         MinMaxAvg `json:"state_size"          yaml:"state_size"`
	EndToEndDuration  MinMaxAvg `json:"end_to_end_duration" yaml:"end_to_end_duration"`
	AlignmentBuffered MinMaxAvg `json:"alignment_buffered"  yaml:"alignment_buffered"`
	AlignmentDuration MinMaxAvg `json:"alignment_duration"  yaml:"alignment_duration"`
}

// LatestCheckpoints holds the latest checkpoint of each kind. Absent kinds are null.
type LatestCheckpoints struct {
	Completed *CheckpointStatistics         `json:"completed" yaml:"completed"`
	Savepoint *CheckpointStatistics         `json:"savepoint" yaml:"savepoint"`
	Failed    *CheckpointStatistics         `json:"failed"    yaml:"failed"`
	Restored  *RestoredCheckpointStatistics `json:"restored"  yaml:"restored"`
}

// CheckpointStatistics describes one checkpoint. Timestamps are unix
// milliseconds, zero when unknown.
type CheckpointStatistics struct {
	Status             string `json:"status"                      yaml:"status"`
	ExternalPath       string `json:"external_path,omitempty"     yaml:"external_path,omitempty"`
	FailureMessage     string `json:"failure_message,omitempty"   yaml:"failure_message,omitempty"`
	ID                 int64  `json:"id"                          yaml:"id"`
	TriggerTimestamp   int64  `json:"trigger_timestamp"           yaml:"trigger_timestamp"`
	LatestAckTimestamp int64  `json:"latest_ack_timestamp"        yaml:"latest_ack_timestamp"`
	FailureTimestamp   int64  `json:"failure_timestamp,omitempty" yaml:"failure_timestamp,omitempty"`
	StateSize          int64  `json:"state_size"                  yaml:"state_size"`
	EndToEndDuration   int64  `json:"end_to_end_duration"         yaml:"end_to_end_duration"`
	AlignmentBuffered  int64  `json:"alignment_buffered"          yaml:"alignment_buffered"`
	AlignmentDuration  int64  `json:"alignment_duration"          yaml:"alignment_duration"`
	IsSavepoint        bool   `json:"is_savepoint"                yaml:"is_savepoint"`
}

// RestoredCheckpointStatistics describes the latest restore.
type RestoredCheckpointStatistics struct {
	ExternalPath     string `json:"external_path,omitempty" yaml:"external_path,omitempty"`
	ID               int64  `json:"id"                      yaml:"id"`
	RestoreTimestamp int64  `json:"restore_timestamp"       yaml:"restore_timestamp"`
	IsSavepoint      bool   `json:"is_savepoint"            yaml:"is_savepoint"`
}

// NewStatistics maps a snapshot to its document form.
func NewStatistics(snap checkpoint.Snapshot) Statistics {
	history := make([]CheckpointStatistics, 0, len(snap.History))

	for _, rec := range snap.History {
		history = append(history, newCheckpointStatistics(rec))
	}

	return Statistics{
		Counts: Counts{
			Restored:   snap.Counts.Restored,
			Total:      snap.Counts.Triggered,
			InProgress: snap.Counts.InProgress(),
			Completed:  snap.Counts.Completed,
			Failed:     snap.Counts.Failed,
		},
		Summary: Summary{
			StateSize:         newMinMaxAvg(snap.Summary.StateSize),
			EndToEndDuration:  newMinMaxAvg(snap.Summary.Duration),
			AlignmentBuffered: newMinMaxAvg(snap.Summary.AlignmentBuffered),
			AlignmentDuration: newMinMaxAvg(snap.Summary.AlignmentDuration),
		},
		Latest: LatestCheckpoints{
			Completed: optionalCheckpoint(snap.LatestCompleted),
			Savepoint: optionalCheckpoint(snap.LatestSavepoint),
			Failed:    optionalCheckpoint(snap.LatestFailed),
			Restored:  optionalRestored(snap.LatestRestored),
		},
		History: history,
	}
}

func newMinMaxAvg(agg stats.Aggregate) MinMaxAvg {
	return MinMaxAvg{Min: agg.Min(), Max: agg.Max(), Avg: agg.Average()}
}

func newCheckpointStatistics(rec checkpoint.Record) CheckpointStatistics {
	out := CheckpointStatistics{
		ID:               rec.ID,
		Status:           rec.Status.String(),
		IsSavepoint:      rec.Savepoint,
		TriggerTimestamp: unixMillis(rec.TriggeredAt),
		ExternalPath:     rec.ExternalPath,
	}

	switch rec.Status {
	case checkpoint.StatusCompleted:
		out.LatestAckTimestamp = unixMillis(rec.FinishedAt)
		out.StateSize = rec.StateSize
		out.EndToEndDuration = rec.Duration.Milliseconds()
		out.AlignmentBuffered = rec.AlignmentBuffered
		out.AlignmentDuration = rec.AlignmentDuration.Milliseconds()
	case checkpoint.StatusFailed:
		out.FailureTimestamp = unixMillis(rec.FinishedAt)
		out.FailureMessage = rec.FailureCause
		out.EndToEndDuration = rec.Duration.Milliseconds()
	case checkpoint.StatusInProgress:
	}

	return out
}

func optionalCheckpoint(rec *checkpoint.Record) *CheckpointStatistics {
	if rec == nil {
		return nil
	}

	out := newCheckpointStatistics(*rec)

	return &out
}

func optionalRestored(restored *checkpoint.RestoredStats) *RestoredCheckpointStatistics {
	if restored == nil {
		return nil
	}

	return &RestoredCheckpointStatistics{
		ID:               restored.CheckpointID,
		RestoreTimestamp: unixMillis(restored.RestoredAt),
		IsSavepoint:      restored.Savepoint,
		ExternalPath:     restored.ExternalPath,
	}
}

func unixMillis(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}

	return ts.UnixMilli()
}
