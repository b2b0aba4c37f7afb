package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/notifications"
	"github.com/apartmentlines/audio-processing/internal/pipeline"
	"github.com/apartmentlines/audio-processing/internal/runner"
)

const timeRounding = 100 * time.Millisecond

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var limit int
	var itemsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download and normalize pending recordings",
		Long: "Run downloads pending recordings from object storage, normalizes them " +
			"with sox, and records completion in the catalog. Interrupting the run " +
			"with SIGINT or SIGTERM drains in-flight work before exiting.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger, _, err := newRunLogger(cfg, "audioproc")
				if err != nil {
					return err
				}

				r := runner.New(cfg, store, notifications.NewService(cfg), logger)
				report, err := r.Run(signalCtx, runner.Options{
					Force:     force,
					Limit:     limit,
					ItemsFile: itemsFile,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s %s in %s\n", report.RunID, describeOutcome(report.Outcome), report.Elapsed.Round(timeRounding))
				fmt.Fprintln(out, renderSummaryTable(report.Summary))

				if code := report.Outcome.ExitCode(); code != 0 {
					return &exitCodeError{code: code}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-download and re-process recordings already marked done")
	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many recordings (0 means all)")
	cmd.Flags().StringVar(&itemsFile, "files", "", "JSON work list to process instead of the catalog")
	return cmd
}

func describeOutcome(outcome pipeline.Outcome) string {
	switch outcome {
	case pipeline.OutcomeCompleted:
		return "completed"
	case pipeline.OutcomeInterrupted:
		return "interrupted"
	default:
		return "failed"
	}
}

func renderSummaryTable(summary pipeline.Summary) string {
	rows := [][]string{
		{"Submitted", strconv.Itoa(summary.Submitted)},
		{"Delivered", strconv.Itoa(summary.Delivered)},
		{"Fetch failures", strconv.Itoa(summary.FetchFailed)},
		{"Process failures", strconv.Itoa(summary.ProcessFailed)},
		{"Dropped", strconv.Itoa(summary.Dropped)},
		{"Abandoned", strconv.Itoa(summary.Abandoned())},
	}
	return renderTable([]string{"Stage", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
