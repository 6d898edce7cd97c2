package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/pkg/alg/stats"
)

const absent = "-"

type palette struct {
	completed  *color.Color
	failed     *color.Color
	inProgress *color.Color
	heading    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		completed:  color.New(color.FgGreen),
		failed:     color.New(color.FgRed),
		inProgress: color.New(color.FgYellow),
		heading:    color.New(color.Bold),
	}

	for _, c := range []*color.Color{p.completed, p.failed, p.inProgress, p.heading} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) status(status string) string {
	switch status {
	case "COMPLETED":
		return p.completed.Sprint(status)
	case "FAILED":
		return p.failed.Sprint(status)
	case "IN_PROGRESS":
		return p.inProgress.Sprint(status)
	default:
		return status
	}
}

// Table renders doc as a set of terminal tables: counts, summary, latest and history.
func Table(doc api.Statistics, opts Options) string {
	p := newPalette(opts.Color)

	var parts []string

	if opts.JobID != "" {
		parts = append(parts, p.heading.Sprintf("=== CHECKPOINTS: %s ===", opts.JobID))
	}

	parts = append(parts,
		countsTable(doc.Counts),
		summaryTable(doc.Summary),
		latestTable(doc.Latest, p),
		historyTable(doc.History, p),
	)

	return strings.Join(parts, "\n\n") + "\n"
}

func countsTable(counts api.Counts) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Counts")
	tw.AppendHeader(table.Row{"Triggered", "In progress", "Completed", "Failed", "Restored"})
	tw.AppendRow(table.Row{counts.Total, counts.InProgress, counts.Completed, counts.Failed, counts.Restored})

	return tw.Render()
}

func summaryTable(summary api.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Summary")
	tw.AppendHeader(table.Row{"Metric", "Min", "Avg", "Max"})
	tw.AppendRow(table.Row{
		"State size",
		bytesLabel(summary.StateSize.Min),
		bytesLabel(int64(summary.StateSize.Avg)),
		bytesLabel(summary.StateSize.Max),
	})
	tw.AppendRow(table.Row{
		"End to end duration",
		millisLabel(summary.EndToEndDuration.Min),
		millisLabel(int64(summary.EndToEndDuration.Avg)),
		millisLabel(summary.EndToEndDuration.Max),
	})
	tw.AppendRow(table.Row{
		"Alignment buffered",
		bytesLabel(summary.AlignmentBuffered.Min),
		bytesLabel(int64(summary.AlignmentBuffered.Avg)),
		bytesLabel(summary.AlignmentBuffered.Max),
	})
	tw.AppendRow(table.Row{
		"Alignment duration",
		millisLabel(summary.AlignmentDuration.Min),
		millisLabel(int64(summary.AlignmentDuration.Avg)),
		millisLabel(summary.AlignmentDuration.Max),
	})

	return tw.Render()
}

func latestTable(latest api.LatestCheckpoints, p palette) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Latest")
	tw.AppendHeader(table.Row{"Kind", "ID", "Status", "State size", "Duration", "Path / Cause"})

	for _, row := range []struct {
		kind string
		cp   *api.CheckpointStatistics
	}{
		{kind: "Completed", cp: latest.Completed},
		{kind: "Savepoint", cp: latest.Savepoint},
		{kind: "Failed", cp: latest.Failed},
	} {
		if row.cp == nil {
			tw.AppendRow(table.Row{row.kind, absent, absent, absent, absent, absent})

			continue
		}

		tw.AppendRow(table.Row{
			row.kind,
			row.cp.ID,
			p.status(row.cp.Status),
			sizeCell(*row.cp),
			millisLabel(row.cp.EndToEndDuration),
			detailCell(*row.cp),
		})
	}

	if restored := latest.Restored; restored != nil {
		tw.AppendRow(table.Row{
			"Restored",
			restored.ID,
			time.UnixMilli(restored.RestoreTimestamp).UTC().Format(time.RFC3339),
			absent,
			absent,
			orAbsent(restored.ExternalPath),
		})
	} else {
		tw.AppendRow(table.Row{"Restored", absent, absent, absent, absent, absent})
	}

	return tw.Render()
}

func historyTable(history []api.CheckpointStatistics, p palette) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("History")
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"ID", "Status", "Savepoint", "Triggered", "State size", "Duration", "Alignment"})

	durations := make([]int64, 0, len(history))

	for i := len(history) - 1; i >= 0; i-- {
		cp := history[i]

		duration := absent
		if cp.Status != "IN_PROGRESS" {
			duration = millisLabel(cp.EndToEndDuration)
		}

		if cp.Status == "COMPLETED" {
			durations = append(durations, cp.EndToEndDuration)
		}

		tw.AppendRow(table.Row{
			cp.ID,
			p.status(cp.Status),
			strconv.FormatBool(cp.IsSavepoint),
			time.UnixMilli(cp.TriggerTimestamp).UTC().Format(time.RFC3339),
			sizeCell(cp),
			duration,
			millisLabel(cp.AlignmentDuration),
		})
	}

	if len(durations) > 0 {
		q := stats.Quantiles(durations, 0.5, 0.95)

		tw.AppendFooter(table.Row{
			"", "", "", "",
			"p50 / p95",
			fmt.Sprintf("%s / %s", millisLabel(int64(q[0])), millisLabel(int64(q[1]))),
			"",
		})
	}

	return tw.Render()
}

func sizeCell(cp api.CheckpointStatistics) string {
	if cp.Status != "COMPLETED" {
		return absent
	}

	return bytesLabel(cp.StateSize)
}

func detailCell(cp api.CheckpointStatistics) string {
	if cp.FailureMessage != "" {
		return cp.FailureMessage
	}

	return orAbsent(cp.ExternalPath)
}

func orAbsent(s string) string {
	if s == "" {
		return absent
	}

	return s
}

func bytesLabel(n int64) string {
	if n < 0 {
		return absent
	}

	return humanize.Bytes(uint64(n))
}

func millisLabel(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
