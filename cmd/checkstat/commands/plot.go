package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/checkstat/internal/client"
	"github.com/Sumatoshi-tech/checkstat/internal/render"
)

const (
	flagOut = "out"

	stdoutPath = "-"
)

// ErrNoOutput is returned when --out is missing.
var ErrNoOutput = errors.New("output file is required (use --out, - for stdout)")

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	var (
		jobID string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render the checkpoint history of a job as an HTML page",
		Long: `Fetch the checkpoint statistics of a job and render duration, state size and
status charts of its recent history into a self-contained HTML page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return ErrNoOutput
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

			if out == stdoutPath {
				return runPlot(cmd.Context(), c, jobID, cmd.OutOrStdout())
			}

			return plotToFile(cmd.Context(), c, jobID, out)
		},
	}

	addClientFlags(cmd)
	cmd.Flags().StringVar(&jobID, flagJob, "", "job id")
	cmd.Flags().StringVarP(&out, flagOut, "o", "", "output HTML file")

	return cmd
}

func plotToFile(ctx context.Context, c *client.Client, jobID, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return runPlot(ctx, c, jobID, f)
}

// runPlot fetches the statistics of jobID and writes the chart page to w.
func runPlot(ctx context.Context, c *client.Client, jobID string, w io.Writer) error {
	doc, err := fetchStatistics(ctx, c, jobID, false)
	if err != nil {
		return err
	}

	return render.Chart(w, doc, jobID)
}
