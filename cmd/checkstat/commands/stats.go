package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/internal/client"
	"github.com/Sumatoshi-tech/checkstat/internal/render"
)

const (
	flagFormat   = "format"
	flagValidate = "validate"
	flagNoColor  = "no-color"
)

// ErrNoJob is returned when --job is missing.
var ErrNoJob = errors.New("job id is required (use --job)")

// statsOptions are the resolved options of the stats command.
type statsOptions struct {
	JobID    string
	Format   render.Format
	Validate bool
	Color    bool
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	var (
		jobID    string
		format   string
		validate bool
		noColor  bool
	)

	formats := make([]string, 0, len(render.Formats()))
	for _, f := range render.Formats() {
		formats = append(formats, string(f))
	}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the checkpoint statistics of a job",
		Long: `Fetch the checkpoint statistics of a job from a checkstat server and print them
as a table, JSON or YAML. With --validate the raw document is checked against the
statistics JSON schema before rendering.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			applyClientFlags(cmd, cfg)

			c, err := client.New(cfg.Client.URL, client.WithTimeout(cfg.Client.Timeout))
			if err != nil {
				return err
			}

			return runStats(cmd.Context(), c, cmd.OutOrStdout(), statsOptions{
				JobID:    jobID,
				Format:   parsed,
				Validate: validate,
				Color:    !noColor && !color.NoColor,
			})
		},
	}

	addClientFlags(cmd)
	cmd.Flags().StringVar(&jobID, flagJob, "", "job id")
	cmd.Flags().StringVarP(&format, flagFormat, "f", string(render.FormatTable), "output format: "+strings.Join(formats, ", "))
	cmd.Flags().BoolVar(&validate, flagValidate, false, "validate the document against the JSON schema")
	cmd.Flags().BoolVar(&noColor, flagNoColor, false, "disable colored table output")

	return cmd
}

// runStats fetches the statistics of opts.JobID and renders them to w.
func runStats(ctx context.Context, c *client.Client, w io.Writer, opts statsOptions) error {
	doc, err := fetchStatistics(ctx, c, opts.JobID, opts.Validate)
	if err != nil {
		return err
	}

	return render.Write(w, doc, opts.Format, render.Options{JobID: opts.JobID, Color: opts.Color})
}

func fetchStatistics(ctx context.Context, c *client.Client, jobID string, validate bool) (api.Statistics, error) {
	if strings.TrimSpace(jobID) == "" {
		return api.Statistics{}, ErrNoJob
	}

	if !validate {
		doc, err := c.Statistics(ctx, jobID)
		if err != nil {
			return api.Statistics{}, fmt.Errorf("job %s: %w", jobID, err)
		}

		return doc, nil
	}

	raw, err := c.Raw(ctx, jobID)
	if err != nil {
		return api.Statistics{}, fmt.Errorf("job %s: %w", jobID, err)
	}

	err = api.ValidateDocument(raw)
	if err != nil {
		return api.Statistics{}, fmt.Errorf("job %s: %w", jobID, err)
	}

	var doc api.Statistics

	err = json.Unmarshal(raw, &doc)
	if err != nil {
		return api.Statistics{}, fmt.Errorf("decode statistics of job %s: %w", jobID, err)
	}

	return doc, nil
}
