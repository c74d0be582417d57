package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subdetx/internal/cues"
	"subdetx/internal/timecode"
)

const previewTextWidth = 60

// cuePreview is one row of `subdetx cues`.
type cuePreview struct {
	Index   int    `json:"index"`
	Start   string `json:"start"`
	End     string `json:"end"`
	In      string `json:"in"`
	Out     string `json:"out"`
	Text    string `json:"text"`
	Invalid bool   `json:"malformed_timestamp,omitempty"`
}

type cuesOutput struct {
	FPS   int          `json:"fps"`
	Cues  []cuePreview `json:"cues"`
	Stats cues.Stats   `json:"stats"`
}

func newCuesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var fps int

	cmd := &cobra.Command{
		Use:   "cues <subtitles>",
		Short: "Preview parsed cues with their converted timecodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if fps <= 0 {
				fps = cfg.DETX.FPS
			}

			in, _, err := openInput(cmd, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			defer in.Close()

			var rowErrors []string
			items, stats, err := cues.ReadAll(in, cues.WithWarningHandler(func(rowErr *cues.RowError) {
				rowErrors = append(rowErrors, rowErr.Error())
			}))
			if err != nil {
				return fmt.Errorf("read subtitles: %w", err)
			}

			out := cuesOutput{FPS: fps, Cues: make([]cuePreview, 0, len(items)), Stats: stats}
			for i, cue := range items {
				inTC, okIn := timecode.Convert(cue.Start, fps)
				outTC, okOut := timecode.Convert(cue.End, fps)
				out.Cues = append(out.Cues, cuePreview{
					Index:   i + 1,
					Start:   cue.Start,
					End:     cue.End,
					In:      inTC,
					Out:     outTC,
					Text:    cue.Text,
					Invalid: !okIn || !okOut,
				})
			}

			if jsonOutput {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			if len(out.Cues) == 0 {
				fmt.Fprintln(w, "No cues found")
			} else {
				rows := make([][]string, 0, len(out.Cues))
				for _, c := range out.Cues {
					flag := ""
					if c.Invalid {
						flag = "!"
					}
					rows = append(rows, []string{
						strconv.Itoa(c.Index),
						c.Start,
						c.End,
						c.In + flag,
						c.Out,
						truncateText(c.Text, previewTextWidth),
					})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"#", "Start", "End", "In", "Out", "Text"},
					rows,
					[]columnAlignment{alignRight},
				))
			}
			fmt.Fprintf(w, "%d cues at %d fps (%d rows read, %d skipped, %d quoting errors)\n",
				stats.Cues, fps, stats.Rows, stats.Dropped, stats.RowErrors)
			for _, msg := range rowErrors {
				fmt.Fprintf(w, "  warning: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frame rate for the timecode preview (default detx.fps)")
	return cmd
}
