package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/diarization"
	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/notifications"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var limit int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit diarization jobs for pending recordings",
		Long: "Submit sends each recording still awaiting annotation to the " +
			"pyannote.ai API, serves the audio over the configured endpoint, and " +
			"waits for every webhook result before exiting.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				if err := cfg.RequireDiarization(); err != nil {
					return err
				}
				logger, _, err := newRunLogger(cfg, "audioproc-submit")
				if err != nil {
					return err
				}

				client := diarization.NewClient(cfg, logger)
				submitter := diarization.NewSubmitter(cfg, store, client, logger,
					diarization.WithForce(force),
					diarization.WithLimit(limit),
				)

				summary, runErr := submitter.Run(signalCtx)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Candidates: %d  Submitted: %d  Skipped: %d  Failed: %d\n",
					summary.Candidates, summary.Submitted, summary.Skipped, summary.Failed)

				if summary.Submitted > 0 {
					notifier := notifications.NewService(cfg)
					if err := notifier.NotifyDiarizationSubmitted(cmd.Context(), summary.Submitted); err != nil {
						logger.Warn("notify submission", logging.Error(err))
					}
				}
				return runErr
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Resubmit recordings whose results already exist")
	cmd.Flags().IntVar(&limit, "limit", 0, "Submit at most this many recordings (0 means all)")
	return cmd
}
