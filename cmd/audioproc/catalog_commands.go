package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and edit the recording catalog",
	}

	catalogCmd.AddCommand(newCatalogAddCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	catalogCmd.AddCommand(newCatalogMarkEAFCommand(ctx))

	return catalogCmd
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var timestamp int64

	cmd := &cobra.Command{
		Use:   "add <master-id> <filename>",
		Short: "Add a recording to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			masterID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || masterID <= 0 {
				return fmt.Errorf("master-id must be a positive integer, got %q", args[0])
			}
			filename := args[1]
			if timestamp == 0 {
				timestamp = time.Now().Unix()
			}

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				recording, err := store.Add(cmd.Context(), masterID, filename, timestamp)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added recording #%d (%s)\n", recording.ID, recording.Filename)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Recording timestamp as a Unix epoch (defaults to now)")
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var pending bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				var recordings []catalog.Recording
				var err error
				if pending {
					recordings, err = store.PendingEAF(cmd.Context(), cfg.Catalog.BatchSize, limit)
				} else {
					recordings, err = store.List(cmd.Context(), cfg.Catalog.BatchSize, limit)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(recordings) == 0 {
					fmt.Fprintln(out, "No recordings")
					return nil
				}
				rows := make([][]string, 0, len(recordings))
				for _, recording := range recordings {
					processed := "-"
					if recording.ProcessedAt != nil {
						processed = recording.ProcessedAt.UTC().Format(time.RFC3339)
					}
					rows = append(rows, []string{
						strconv.FormatInt(recording.ID, 10),
						strconv.FormatInt(recording.MasterID, 10),
						recording.Filename,
						processed,
						yesNo(recording.EAFComplete),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Master", "Filename", "Processed", "EAF"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Show only recordings still awaiting annotation")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many recordings (0 means all)")
	return cmd
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Total", strconv.Itoa(stats.Total)},
					{"Processed", strconv.Itoa(stats.Processed)},
					{"EAF complete", strconv.Itoa(stats.EAFComplete)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newCatalogMarkEAFCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-eaf <id>",
		Short: "Mark a recording's annotation as complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("id must be a positive integer, got %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				if err := store.MarkEAFComplete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording #%d marked annotation complete\n", id)
				return nil
			})
		},
	}
}
