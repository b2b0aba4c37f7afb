package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/report"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify every cataloged recording has its expected artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				result, err := report.VerifyData(cmd.Context(), store, cfg)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if result.Complete() {
					fmt.Fprintf(out, "All %d recordings have complete artifacts (%d files checked)\n",
						result.Recordings, result.Checked)
					return nil
				}

				rows := make([][]string, 0, len(result.Missing))
				for _, missing := range result.Missing {
					rows = append(rows, []string{
						fmt.Sprintf("%d", missing.Recording.ID),
						missing.Recording.Filename,
						missing.Kind,
						missing.Path,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Recording", "Kind", "Missing Path"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return fmt.Errorf("%d missing artifacts across %d recordings", len(result.Missing), result.Recordings)
			})
		},
	}
}
