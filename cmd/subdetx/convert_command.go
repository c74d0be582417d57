package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subdetx/internal/convert"
	"subdetx/internal/fileutil"
	"subdetx/internal/history"
	"subdetx/internal/logging"
	"subdetx/internal/textutil"
)

const stdioPath = "-"

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var audioPath string
	var outputPath string
	var strict bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "convert <subtitles>",
		Short: "Convert a pipe-delimited transcript into a DETX document",
		Long: "Convert reads a TimerStart|TimerEnd|Text transcript (use - for stdin) and\n" +
			"writes <name>.detx next to it, or to --output (- for stdout).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			converter, err := ctx.converter(logger, strict)
			if err != nil {
				return err
			}

			input := strings.TrimSpace(args[0])
			in, name, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer in.Close()

			started := time.Now()
			result, convErr := converter.Convert(cmd.Context(), convert.Request{
				Subtitles: in,
				VideoPath: videoPath,
				AudioPath: audioPath,
				Name:      name,
			})
			if !noHistory {
				recordCLIConversion(ctx, cmd, history.Input{
					Source:       history.SourceCLI,
					SubtitleName: name,
					VideoPath:    videoPath,
					AudioPath:    audioPath,
				}, result, time.Since(started), convErr)
			}
			if convErr != nil {
				return fmt.Errorf("convert %s: %w", name, convErr)
			}

			target := resolveOutputPath(input, outputPath)
			if target == stdioPath {
				_, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(result.Document))
				return err
			}
			if err := fileutil.WriteFileAtomic(target, result.Document, 0o644); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%d lines, %s)\n", target, result.Lines, humanize.Bytes(uint64(len(result.Document))))
			if result.Stats.Dropped > 0 || result.Stats.RowErrors > 0 || result.Stats.Malformed > 0 {
				fmt.Fprintf(out, "Skipped rows: %d, quoting errors: %d, malformed timestamps: %d (rejected %d)\n",
					result.Stats.Dropped, result.Stats.RowErrors, result.Stats.Malformed, result.Stats.Rejected)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Video reference written into the document (required)")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Optional audio reference")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default <name>.detx; - for stdout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Drop cues whose timestamps are not HH:MM:SS,mmm")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this conversion in history")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}

func openInput(cmd *cobra.Command, input string) (io.ReadCloser, string, error) {
	if input == stdioPath {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, "", fmt.Errorf("open subtitles: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("stat subtitles: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, "", fmt.Errorf("subtitles path %q is a directory", input)
	}
	return f, filepath.Base(input), nil
}

// resolveOutputPath picks the destination: the explicit flag, stdout for
// stdin input, or <name>.detx beside the input.
func resolveOutputPath(input, flagValue string) string {
	flagValue = strings.TrimSpace(flagValue)
	if flagValue != "" {
		return flagValue
	}
	if input == stdioPath {
		return stdioPath
	}
	return filepath.Join(filepath.Dir(input), textutil.DETXName(input))
}

func recordCLIConversion(ctx *commandContext, cmd *cobra.Command, in history.Input, result *convert.Result, elapsed time.Duration, convErr error) {
	err := ctx.withHistory(func(store *history.Store) error {
		return store.Record(cmd.Context(), history.FromOutcome(in, result, elapsed, convErr))
	})
	if err == nil || errors.Is(err, cmd.Context().Err()) {
		return
	}
	if logger, logErr := ctx.logger(cmd); logErr == nil {
		logging.WarnWithContext(logger, "failed to record conversion", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.data_dir and the history database"),
			logging.String(logging.FieldImpact, "conversion missing from history"),
		)
	}
}
