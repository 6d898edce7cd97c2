package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int64) time.Time {
	return baseTime.Add(time.Duration(ms) * time.Millisecond)
}

func ids(records []Record) []int64 {
	out := make([]int64, 0, len(records))

	for _, rec := range records {
		out = append(out, rec.ID)
	}

	return out
}

func TestHistory_RetainsMostRecent(t *testing.T) {
	t.Parallel()

	const capacity = 4

	hist := NewHistory(capacity)

	for id := int64(1); id <= 11; id++ {
		require.NoError(t, hist.RecordTriggered(id, at(id)))
		assert.LessOrEqual(t, hist.Len(), capacity)
	}

	assert.Equal(t, []int64{8, 9, 10, 11}, ids(hist.Entries()))
}

func TestHistory_EntriesBelowCapacity(t *testing.T) {
	t.Parallel()

	hist := NewHistory(10)

	require.NoError(t, hist.RecordTriggered(1, at(0)))
	require.NoError(t, hist.RecordTriggered(2, at(1)))

	entries := hist.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, StatusInProgress, entries[0].Status)
	assert.Equal(t, at(0), entries[0].TriggeredAt)
	assert.Equal(t, []int64{1, 2}, ids(entries))
}

func TestHistory_CompletedAfterEviction(t *testing.T) {
	t.Parallel()

	hist := NewHistory(2)

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, hist.RecordTriggered(id, at(id*10)))
	}

	assert.Equal(t, []int64{2, 3}, ids(hist.Entries()))

	rec, err := hist.RecordCompleted(1, Completion{StateSize: 100, CompletedAt: at(100), Savepoint: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)

	latest, ok := hist.LatestCompleted()
	require.True(t, ok)
	assert.Equal(t, int64(1), latest.ID)
	assert.Equal(t, int64(100), latest.StateSize)

	savepoint, ok := hist.LatestSavepoint()
	require.True(t, ok)
	assert.Equal(t, int64(1), savepoint.ID)

	assert.Equal(t, []int64{2, 3}, ids(hist.Entries()))

	for _, entry := range hist.Entries() {
		assert.Equal(t, StatusInProgress, entry.Status)
	}
}

func TestHistory_FailedAfterEviction(t *testing.T) {
	t.Parallel()

	hist := NewHistory(1)

	require.NoError(t, hist.RecordTriggered(1, at(0)))
	require.NoError(t, hist.RecordTriggered(2, at(10)))

	_, err := hist.RecordFailed(1, "declined", at(50))
	require.NoError(t, err)

	failed, ok := hist.LatestFailed()
	require.True(t, ok)
	assert.Equal(t, int64(1), failed.ID)
	assert.Equal(t, "declined", failed.FailureCause)
	assert.Equal(t, 50*time.Millisecond, failed.Duration)
	assert.Equal(t, []int64{2}, ids(hist.Entries()))
}

func TestHistory_ReplacesRetainedEntry(t *testing.T) {
	t.Parallel()

	hist := NewHistory(3)

	require.NoError(t, hist.RecordTriggered(1, at(0)))
	require.NoError(t, hist.RecordTriggered(2, at(10)))

	_, err := hist.RecordCompleted(1, Completion{StateSize: 7, CompletedAt: at(40)})
	require.NoError(t, err)

	_, err = hist.RecordFailed(2, "timeout", at(90))
	require.NoError(t, err)

	entries := hist.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, StatusCompleted, entries[0].Status)
	assert.Equal(t, 40*time.Millisecond, entries[0].Duration)
	assert.Equal(t, StatusFailed, entries[1].Status)
	assert.Equal(t, "timeout", entries[1].FailureCause)
}

func TestHistory_UnknownID(t *testing.T) {
	t.Parallel()

	hist := NewHistory(2)

	_, err := hist.RecordCompleted(42, Completion{})
	require.ErrorIs(t, err, ErrUnknownCheckpoint)

	_, err = hist.RecordFailed(42, "x", at(0))
	require.ErrorIs(t, err, ErrUnknownCheckpoint)

	_, ok := hist.LatestCompleted()
	assert.False(t, ok)
}

func TestHistory_TerminalTwice(t *testing.T) {
	t.Parallel()

	hist := NewHistory(2)

	require.NoError(t, hist.RecordTriggered(1, at(0)))

	_, err := hist.RecordCompleted(1, Completion{})
	require.NoError(t, err)

	_, err = hist.RecordFailed(1, "late", at(10))
	require.ErrorIs(t, err, ErrUnknownCheckpoint)

	_, ok := hist.LatestFailed()
	assert.False(t, ok)
}

func TestHistory_DuplicateTrigger(t *testing.T) {
	t.Parallel()

	hist := NewHistory(2)

	require.NoError(t, hist.RecordTriggered(1, at(0)))
	require.ErrorIs(t, hist.RecordTriggered(1, at(5)), ErrDuplicateCheckpoint)
	assert.Equal(t, 1, hist.Len())
}

func TestHistory_LatestByHighestID(t *testing.T) {
	t.Parallel()

	hist := NewHistory(5)

	require.NoError(t, hist.RecordTriggered(1, at(0)))
	require.NoError(t, hist.RecordTriggered(2, at(1)))

	_, err := hist.RecordCompleted(2, Completion{StateSize: 2})
	require.NoError(t, err)

	_, err = hist.RecordCompleted(1, Completion{StateSize: 1})
	require.NoError(t, err)

	latest, ok := hist.LatestCompleted()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.ID)
}

func TestHistory_SavepointPointerOnlyForSavepoints(t *testing.T) {
	t.Parallel()

	hist := NewHistory(5)

	require.NoError(t, hist.RecordTriggered(1, at(0)))
	require.NoError(t, hist.RecordTriggered(2, at(1)))

	_, err := hist.RecordCompleted(1, Completion{Savepoint: true, ExternalPath: "s3://sp/1"})
	require.NoError(t, err)

	_, err = hist.RecordCompleted(2, Completion{})
	require.NoError(t, err)

	savepoint, ok := hist.LatestSavepoint()
	require.True(t, ok)
	assert.Equal(t, int64(1), savepoint.ID)
	assert.True(t, savepoint.Externalized())

	latest, _ := hist.LatestCompleted()
	assert.Equal(t, int64(2), latest.ID)
	assert.False(t, latest.Externalized())
}

func TestHistory_ZeroCapacity(t *testing.T) {
	t.Parallel()

	hist := NewHistory(0)

	require.NoError(t, hist.RecordTriggered(1, at(0)))

	_, err := hist.RecordCompleted(1, Completion{StateSize: 3})
	require.NoError(t, err)

	assert.Empty(t, hist.Entries())

	latest, ok := hist.LatestCompleted()
	require.True(t, ok)
	assert.Equal(t, int64(3), latest.StateSize)
}

func TestHistory_NegativeCapacityPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewHistory(-1) })
}

func TestHistory_EntriesAreCopies(t *testing.T) {
	t.Parallel()

	hist := NewHistory(2)

	require.NoError(t, hist.RecordTriggered(1, at(0)))

	entries := hist.Entries()
	entries[0].ID = 99

	assert.Equal(t, []int64{1}, ids(hist.Entries()))
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "IN_PROGRESS", StatusInProgress.String())
	assert.Equal(t, "COMPLETED", StatusCompleted.String())
	assert.Equal(t, "FAILED", StatusFailed.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestCompletedRecord_ExplicitDurationWins(t *testing.T) {
	t.Parallel()

	rec := completedRecord(1, at(0), Completion{CompletedAt: at(500), Duration: 200 * time.Millisecond})
	assert.Equal(t, 200*time.Millisecond, rec.Duration)

	derived := completedRecord(1, at(0), Completion{CompletedAt: at(500)})
	assert.Equal(t, 500*time.Millisecond, derived.Duration)
}
