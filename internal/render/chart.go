package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
)

const (
	chartWidth        = "100%"
	chartHeight       = "420px"
	chartBackground   = "#1c1917"
	chartText         = "#e7e5e4"
	chartTextMuted    = "#a8a29e"
	chartGrid         = "#44403c"
	colorCompleted    = "#22c55e"
	colorFailed       = "#ef4444"
	colorInProgress   = "#eab308"
	colorDuration     = "#3b82f6"
	colorAlignment    = "#a855f7"
	dataZoomEndPct    = 100
	pieRadius         = "60%"
	areaOpacity       = 0.2
	chartPageTitlePfx = "Checkpoints"
)

// Chart writes an HTML page with the history and counts of doc.
func Chart(w io.Writer, doc api.Statistics, jobID string) error {
	page := components.NewPage()
	page.PageTitle = chartPageTitlePfx

	if jobID != "" {
		page.PageTitle = chartPageTitlePfx + ": " + jobID
	}

	page.AddCharts(
		durationChart(doc.History),
		stateSizeChart(doc.History),
		statusChart(doc.Counts),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}

	return nil
}

func baseOptions(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:           chartWidth,
			Height:          chartHeight,
			BackgroundColor: chartBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      subtitle,
			Left:          "center",
			TitleStyle:    &opts.TextStyle{Color: chartText},
			SubtitleStyle: &opts.TextStyle{Color: chartTextMuted},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Top:       "12%",
			Left:      "center",
			TextStyle: &opts.TextStyle{Color: chartTextMuted},
		}),
		charts.WithGridOpts(opts.Grid{Top: "25%", Bottom: "15%", Left: "5%", Right: "5%", ContainLabel: opts.Bool(true)}),
	}
}

func axisOptions(xName, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithXAxisOpts(opts.XAxis{
			Name:      xName,
			AxisLabel: &opts.AxisLabel{Color: chartTextMuted},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      yName,
			AxisLabel: &opts.AxisLabel{Color: chartTextMuted},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: chartGrid}},
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEndPct},
			opts.DataZoom{Type: "inside"},
		),
	}
}

func historyLabels(history []api.CheckpointStatistics) []string {
	labels := make([]string, len(history))

	for i, cp := range history {
		labels[i] = "#" + strconv.FormatInt(cp.ID, 10)
	}

	return labels
}

func durationChart(history []api.CheckpointStatistics) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(
		baseOptions("End to end duration", "Terminal checkpoints in the retained history"),
		axisOptions("checkpoint", "ms")...,
	)...)

	durations := make([]opts.LineData, len(history))
	alignments := make([]opts.LineData, len(history))

	for i, cp := range history {
		if cp.Status == "IN_PROGRESS" {
			durations[i] = opts.LineData{Value: "-"}
			alignments[i] = opts.LineData{Value: "-"}

			continue
		}

		durations[i] = opts.LineData{Value: cp.EndToEndDuration, Name: cp.Status}
		alignments[i] = opts.LineData{Value: cp.AlignmentDuration}
	}

	line.SetXAxis(historyLabels(history)).
		AddSeries("duration", durations,
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorDuration}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorDuration}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(areaOpacity)}),
		).
		AddSeries("alignment", alignments,
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorAlignment}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorAlignment}),
		)

	return line
}

func stateSizeChart(history []api.CheckpointStatistics) *charts.Bar {
	bar := charts.NewBar()

	var peak int64

	sizes := make([]opts.BarData, len(history))

	for i, cp := range history {
		item := opts.BarData{Value: cp.StateSize}

		switch cp.Status {
		case "COMPLETED":
			item.ItemStyle = &opts.ItemStyle{Color: colorCompleted}
			peak = max(peak, cp.StateSize)
		case "FAILED":
			item.ItemStyle = &opts.ItemStyle{Color: colorFailed}
		default:
			item.ItemStyle = &opts.ItemStyle{Color: colorInProgress}
		}

		sizes[i] = item
	}

	bar.SetGlobalOptions(append(
		baseOptions("State size", "Peak "+humanize.Bytes(uint64(peak))),
		axisOptions("checkpoint", "bytes")...,
	)...)

	bar.SetXAxis(historyLabels(history)).AddSeries("state size", sizes)

	return bar
}

func statusChart(counts api.Counts) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(baseOptions(
		"Checkpoint outcomes",
		fmt.Sprintf("%d triggered, %d restored", counts.Total, counts.Restored),
	)...)

	pie.AddSeries("outcomes", []opts.PieData{
		{Name: "completed", Value: counts.Completed, ItemStyle: &opts.ItemStyle{Color: colorCompleted}},
		{Name: "failed", Value: counts.Failed, ItemStyle: &opts.ItemStyle{Color: colorFailed}},
		{Name: "in progress", Value: counts.InProgress, ItemStyle: &opts.ItemStyle{Color: colorInProgress}},
	}, charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}))

	return pie
}
