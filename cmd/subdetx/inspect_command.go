package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"subdetx/internal/detx"
	"subdetx/internal/timecode"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <file.detx>",
		Short: "Show the header and lines of a DETX document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open document: %w", err)
			}
			defer f.Close()

			doc, err := detx.Decode(f)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, doc)
			}

			w := cmd.OutOrStdout()
			role := ""
			if len(doc.Roles) > 0 {
				role = fmt.Sprintf("%s (%s)", doc.Roles[0].Name, doc.Roles[0].ID)
			}
			fmt.Fprintln(w, renderKeyValues([][2]string{
				{"Title", doc.Header.Title},
				{"Episode", doc.Header.Episode.Number},
				{"Cappella", doc.Header.Cappella.Version},
				{"Copyright", doc.Copyright},
				{"Video", fmt.Sprintf("%s @ %s", doc.Header.VideoFile.Path, doc.Header.VideoFile.Timestamp)},
				{"Audio", doc.Header.AudioFile.Path},
				{"Roles", role},
				{"Lines", strconv.Itoa(len(doc.Lines))},
				{"Span", documentSpan(doc, cfg.DETX.FPS)},
			}))

			lines := doc.Lines
			if limit > 0 && len(lines) > limit {
				lines = lines[:limit]
			}
			if len(lines) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(lines))
			for i, line := range lines {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					line.Open().Timecode,
					line.Close().Timecode,
					line.Role,
					truncateText(line.Text, previewTextWidth),
				})
			}
			fmt.Fprintln(w, renderTable(
				[]string{"#", "In", "Out", "Role", "Text"},
				rows,
				[]columnAlignment{alignRight},
			))
			if hidden := len(doc.Lines) - len(lines); hidden > 0 {
				fmt.Fprintf(w, "... %d more lines (use --limit 0 to show all)\n", hidden)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the decoded document as JSON")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum lines to print (0 for all)")
	return cmd
}

// documentSpan reports first-in to last-out as a duration when both ends are
// frame timecodes.
func documentSpan(doc *detx.Document, fps int) string {
	if len(doc.Lines) == 0 {
		return "-"
	}
	first, err := timecode.ParseTimecode(doc.Lines[0].Open().Timecode)
	if err != nil {
		return "-"
	}
	last, err := timecode.ParseTimecode(doc.Lines[len(doc.Lines)-1].Close().Timecode)
	if err != nil {
		return "-"
	}
	ms := last.TotalMilliseconds(fps) - first.TotalMilliseconds(fps)
	if ms < 0 {
		return "-"
	}
	return fmt.Sprintf("%s → %s (%.1fs)", first, last, float64(ms)/1000)
}
