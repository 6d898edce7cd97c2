package api_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ms(n int64) time.Time {
	return epoch.Add(time.Duration(n) * time.Millisecond)
}

// populatedTracker returns a tracker with one completed savepoint, one
// completed checkpoint, one failure, one pending checkpoint and a restore.
func populatedTracker(t *testing.T) *checkpoint.Tracker {
	t.Helper()

	tracker := checkpoint.NewTracker(checkpoint.WithHistorySize(3))

	for id := int64(1); id <= 4; id++ {
		require.NoError(t, tracker.ReportTriggered(id, ms(id*1000)))
	}

	require.NoError(t, tracker.ReportCompleted(1, checkpoint.Completion{
		StateSize:    50,
		CompletedAt:  ms(1200),
		Savepoint:    true,
		ExternalPath: "s3://bucket/sp-1",
	}))
	require.NoError(t, tracker.ReportCompleted(2, checkpoint.Completion{
		StateSize:         200,
		CompletedAt:       ms(2400),
		AlignmentBuffered: 64,
		AlignmentDuration: 30 * time.Millisecond,
	}))
	require.NoError(t, tracker.ReportFailed(3, "task declined", ms(3100)))
	require.NoError(t, tracker.ReportRestored(checkpoint.Restore{CheckpointID: 1, RestoredAt: ms(9000), Savepoint: true}))

	return tracker
}

func TestNewStatistics_Populated(t *testing.T) {
	t.Parallel()

	doc := api.NewStatistics(populatedTracker(t).Snapshot())

	assert.Equal(t, api.Counts{Restored: 1, Total: 4, InProgress: 1, Completed: 2, Failed: 1}, doc.Counts)
	assert.Equal(t, api.MinMaxAvg{Min: 50, Max: 200, Avg: 125}, doc.Summary.StateSize)
	assert.Equal(t, api.MinMaxAvg{Min: 200, Max: 400, Avg: 300}, doc.Summary.EndToEndDuration)

	require.NotNil(t, doc.Latest.Completed)
	assert.Equal(t, int64(2), doc.Latest.Completed.ID)
	assert.Equal(t, ms(2400).UnixMilli(), doc.Latest.Completed.LatestAckTimestamp)
	assert.Equal(t, int64(64), doc.Latest.Completed.AlignmentBuffered)
	assert.Equal(t, int64(30), doc.Latest.Completed.AlignmentDuration)

	require.NotNil(t, doc.Latest.Savepoint)
	assert.Equal(t, "s3://bucket/sp-1", doc.Latest.Savepoint.ExternalPath)
	assert.True(t, doc.Latest.Savepoint.IsSavepoint)

	require.NotNil(t, doc.Latest.Failed)
	assert.Equal(t, "FAILED", doc.Latest.Failed.Status)
	assert.Equal(t, "task declined", doc.Latest.Failed.FailureMessage)
	assert.Equal(t, ms(3100).UnixMilli(), doc.Latest.Failed.FailureTimestamp)

	require.NotNil(t, doc.Latest.Restored)
	assert.Equal(t, ms(9000).UnixMilli(), doc.Latest.Restored.RestoreTimestamp)

	require.Len(t, doc.History, 3)
	assert.Equal(t, []string{"COMPLETED", "FAILED", "IN_PROGRESS"},
		[]string{doc.History[0].Status, doc.History[1].Status, doc.History[2].Status})
	assert.Equal(t, int64(0), doc.History[2].LatestAckTimestamp)
}

func TestNewStatistics_AlignmentSummaryKeepsUnits(t *testing.T) {
	t.Parallel()

	tracker := checkpoint.NewTracker()

	require.NoError(t, tracker.ReportTriggered(1, ms(0)))
	require.NoError(t, tracker.ReportCompleted(1, checkpoint.Completion{
		CompletedAt:       ms(900),
		AlignmentBuffered: 4096,
		AlignmentDuration: 250 * time.Millisecond,
	}))

	doc := api.NewStatistics(tracker.Snapshot())

	assert.Equal(t, api.MinMaxAvg{Min: 4096, Max: 4096, Avg: 4096}, doc.Summary.AlignmentBuffered)
	assert.Equal(t, api.MinMaxAvg{Min: 250, Max: 250, Avg: 250}, doc.Summary.AlignmentDuration)
	require.Len(t, doc.History, 1)
	assert.Equal(t, doc.Summary.AlignmentBuffered.Max, doc.History[0].AlignmentBuffered)
	assert.Equal(t, doc.Summary.AlignmentDuration.Max, doc.History[0].AlignmentDuration)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, api.ValidateDocument(data))
}

func TestNewStatistics_EmptyEncodesNullsAndEmptyHistory(t *testing.T) {
	t.Parallel()

	doc := api.NewStatistics(checkpoint.NewTracker().Snapshot())

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any

	require.NoError(t, json.Unmarshal(data, &raw))

	latest, ok := raw["latest"].(map[string]any)
	require.True(t, ok)

	for _, kind := range []string{"completed", "savepoint", "failed", "restored"} {
		value, present := latest[kind]
		assert.True(t, present, kind)
		assert.Nil(t, value, kind)
	}

	assert.Equal(t, []any{}, raw["history"])
}

func TestValidateDocument_AcceptsRenderedDocuments(t *testing.T) {
	t.Parallel()

	for name, snap := range map[string]checkpoint.Snapshot{
		"empty":     checkpoint.NewTracker().Snapshot(),
		"populated": populatedTracker(t).Snapshot(),
	} {
		data, err := json.Marshal(api.NewStatistics(snap))
		require.NoError(t, err)

		assert.NoError(t, api.ValidateDocument(data), name)
	}
}

func TestValidateDocument_RejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing_counts", doc: `{"summary":{},"latest":{},"history":[]}`},
		{name: "negative_count", doc: `{"counts":{"restored":0,"total":-1,"in_progress":0,"completed":0,"failed":0},` +
			`"summary":{"state_size":{"min":0,"max":0,"avg":0},"end_to_end_duration":{"min":0,"max":0,"avg":0},` +
			`"alignment_buffered":{"min":0,"max":0,"avg":0},"alignment_duration":{"min":0,"max":0,"avg":0}},` +
			`"latest":{"completed":null,"savepoint":null,"failed":null,"restored":null},"history":[]}`},
		{name: "not_json", doc: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := api.ValidateDocument([]byte(tt.doc))
			require.ErrorIs(t, err, api.ErrInvalidDocument)
		})
	}
}

func TestSchema_IsCopy(t *testing.T) {
	t.Parallel()

	schema := api.Schema()
	require.NotEmpty(t, schema)

	schema[0] = 'x'

	assert.Equal(t, byte('{'), api.Schema()[0])
}
