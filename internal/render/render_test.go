package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/internal/render"
)

func sampleDocument() api.Statistics {
	completed := api.CheckpointStatistics{
		ID:                 7,
		Status:             "COMPLETED",
		TriggerTimestamp:   1_700_000_000_000,
		LatestAckTimestamp: 1_700_000_000_250,
		StateSize:          3 * 1000 * 1000,
		EndToEndDuration:   250,
		AlignmentDuration:  12,
		ExternalPath:       "s3://bucket/chk-7",
	}
	failed := api.CheckpointStatistics{
		ID:               8,
		Status:           "FAILED",
		TriggerTimestamp: 1_700_000_001_000,
		FailureTimestamp: 1_700_000_001_100,
		EndToEndDuration: 100,
		FailureMessage:   "declined by task",
	}
	pending := api.CheckpointStatistics{ID: 9, Status: "IN_PROGRESS", TriggerTimestamp: 1_700_000_002_000}

	return api.Statistics{
		Counts: api.Counts{Total: 9, InProgress: 1, Completed: 6, Failed: 2, Restored: 1},
		Summary: api.Summary{
			StateSize:        api.MinMaxAvg{Min: 1000, Max: 3 * 1000 * 1000, Avg: 1500000},
			EndToEndDuration: api.MinMaxAvg{Min: 100, Max: 250, Avg: 175},
		},
		Latest: api.LatestCheckpoints{
			Completed: &completed,
			Failed:    &failed,
			Restored:  &api.RestoredCheckpointStatistics{ID: 3, RestoreTimestamp: 1_699_999_000_000},
		},
		History: []api.CheckpointStatistics{completed, failed, pending},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"table", "JSON", " yaml "} {
		format, err := render.ParseFormat(name)
		require.NoError(t, err, name)
		assert.Contains(t, render.Formats(), format)
	}

	_, err := render.ParseFormat("xml")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, sampleDocument(), render.FormatJSON, render.Options{}))
	require.NoError(t, api.ValidateDocument(buf.Bytes()))

	var decoded api.Statistics

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleDocument(), decoded)
}

func TestWrite_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Write(&buf, sampleDocument(), render.FormatYAML, render.Options{}))
	assert.Contains(t, buf.String(), "in_progress: 1")
	assert.Contains(t, buf.String(), "savepoint: null")

	var decoded api.Statistics

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleDocument().Counts, decoded.Counts)
	assert.Len(t, decoded.History, 3)
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := render.Write(&bytes.Buffer{}, sampleDocument(), render.Format("csv"), render.Options{})
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestTable_Plain(t *testing.T) {
	t.Parallel()

	out := render.Table(sampleDocument(), render.Options{JobID: "wordcount"})

	for _, want := range []string{
		"=== CHECKPOINTS: wordcount ===",
		"Counts", "Summary", "Latest", "History",
		"3.0 MB", "250ms", "declined by task", "s3://bucket/chk-7",
		"IN_PROGRESS", "p50 / p95", "Alignment buffered", "Alignment duration",
	} {
		assert.Contains(t, out, want)
	}

	assert.NotContains(t, out, "\x1b[")
}

func TestTable_HistoryNewestFirst(t *testing.T) {
	t.Parallel()

	out := render.Table(sampleDocument(), render.Options{})
	history := out[strings.Index(out, "History"):]

	assert.Less(t, strings.Index(history, "IN_PROGRESS"), strings.Index(history, "FAILED"))
	assert.Less(t, strings.Index(history, "FAILED"), strings.Index(history, "COMPLETED"))
}

func TestTable_Colored(t *testing.T) {
	t.Parallel()

	out := render.Table(sampleDocument(), render.Options{Color: true})

	assert.Contains(t, out, "\x1b[")
}

func TestTable_EmptyDocument(t *testing.T) {
	t.Parallel()

	out := render.Table(api.Statistics{History: []api.CheckpointStatistics{}}, render.Options{})

	assert.Contains(t, out, "Restored")
	assert.NotContains(t, out, "p50 / p95")
}

func TestChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, render.Chart(&buf, sampleDocument(), "wordcount"))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Checkpoints: wordcount")
	assert.Contains(t, html, "End to end duration")
	assert.Contains(t, html, "#7")
}
