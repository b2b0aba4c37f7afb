package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/apartmentlines/audio-processing/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Report on annotated segment durations",
	}

	reportCmd.AddCommand(newReportDurationCommand(ctx))
	reportCmd.AddCommand(newReportOutliersCommand(ctx, "shorter", "List recordings shorter than a threshold", true))
	reportCmd.AddCommand(newReportOutliersCommand(ctx, "longer", "List recordings longer than a threshold", false))

	return reportCmd
}

func newReportDurationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "duration",
		Short: "Total annotated duration across all segment files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stats, err := report.ScanUEM(cfg.Paths.UEMDir)
			if err != nil {
				return err
			}

			printer := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Files", printer.Sprintf("%d", stats.Files)},
				{"Segments", printer.Sprintf("%d", stats.Segments)},
				{"Total duration", stats.Clock()},
			}
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newReportOutliersCommand(ctx *commandContext, name, short string, shorter bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <seconds>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := strconv.ParseFloat(args[0], 64)
			if err != nil || threshold <= 0 {
				return fmt.Errorf("threshold must be a positive number of seconds, got %q", args[0])
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			outliers, err := report.FilesByDuration(cfg.Paths.UEMDir, threshold, shorter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(outliers) == 0 {
				fmt.Fprintln(out, "No matching recordings")
				return nil
			}
			rows := make([][]string, 0, len(outliers))
			for _, outlier := range outliers {
				rows = append(rows, []string{
					outlier.WavFile,
					humanize.CommafWithDigits(outlier.Seconds, 2),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Recording", "Seconds"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
