package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subdetx/internal/history"
)

type historyOutput struct {
	Summary     history.Summary      `json:"summary"`
	Conversions []history.Conversion `json:"conversions"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if pruneDays > 0 {
					removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d conversions older than %d days\n", removed, pruneDays)
				}

				rows, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				summary, err := store.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					if rows == nil {
						rows = []history.Conversion{}
					}
					return writeJSON(cmd, historyOutput{Summary: summary, Conversions: rows})
				}

				w := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(w, "No conversions recorded")
					return nil
				}
				fmt.Fprintln(w, renderTable(
					[]string{"ID", "When", "Source", "File", "Status", "Cues", "Size", "Took"},
					historyRows(rows, time.Now()),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				fmt.Fprintf(w, "%d total, %d succeeded, %d failed\n", summary.Total, summary.Succeeded, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of conversions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete conversions older than this many days first")
	return cmd
}

func historyRows(rows []history.Conversion, now time.Time) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		id := row.ID
		if len(id) > 8 {
			id = id[:8]
		}
		name := row.SubtitleName
		if name == "" {
			name = "-"
		}
		status := string(row.Status)
		if row.ErrorMessage != "" {
			status += ": " + truncateText(row.ErrorMessage, 32)
		}
		out = append(out, []string{
			id,
			humanize.RelTime(row.CreatedAt, now, "ago", "from now"),
			string(row.Source),
			truncateText(name, 32),
			status,
			strconv.Itoa(row.Cues),
			humanize.Bytes(uint64(max(row.OutputBytes, 0))),
			row.Duration.Round(time.Millisecond).String(),
		})
	}
	return out
}
