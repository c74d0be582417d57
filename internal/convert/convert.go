package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"subdetx/internal/cues"
	"subdetx/internal/detx"
	"subdetx/internal/logging"
	"subdetx/internal/timecode"
)

// Policy selects what happens to a cue whose timestamp is not HH:MM:SS,mmm.
type Policy string

const (
	// PolicyPassThrough copies the timestamp into the document unchanged.
	PolicyPassThrough Policy = "pass_through"
	// PolicyReject drops the cue.
	PolicyReject Policy = "reject"
)

// ParsePolicy accepts "pass_through" (or empty) and "reject".
func ParsePolicy(value string) (Policy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch Policy(normalized) {
	case "", PolicyPassThrough:
		return PolicyPassThrough, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown timecode policy %q", value)
}

// Request is one conversion job.
type Request struct {
	Subtitles io.Reader
	VideoPath string
	AudioPath string
	// Name labels log lines; usually the uploaded file name.
	Name string
}

// Stats extends the reader counters with timestamp policy outcomes.
type Stats struct {
	cues.Stats
	Malformed int `json:"malformed_timestamps"`
	Rejected  int `json:"rejected"`
}

// Result is a finished conversion.
type Result struct {
	Document []byte        `json:"-"`
	Lines    int           `json:"lines"`
	Stats    Stats         `json:"stats"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Converter turns transcripts into DETX documents.
type Converter struct {
	opts   detx.Options
	policy Policy
	logger *slog.Logger
}

// New returns a Converter stamping opts into every document.
func New(opts detx.Options, policy Policy, logger *slog.Logger) *Converter {
	if policy == "" {
		policy = PolicyPassThrough
	}
	return &Converter{
		opts:   opts,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "convert"),
	}
}

// Policy reports the configured timestamp policy.
func (c *Converter) Policy() Policy {
	return c.policy
}

// Convert runs the pipeline for req. No document is returned on error.
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	if req.Subtitles == nil {
		return nil, ErrMissingSubtitles
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return nil, ErrMissingVideo
	}
	started := time.Now()
	logger := logging.WithContext(ctx, c.logger)
	if req.Name != "" {
		logger = logger.With(logging.String("file", req.Name))
	}

	reader := cues.NewReader(req.Subtitles, cues.WithWarningHandler(func(rowErr *cues.RowError) {
		if errors.Is(rowErr, cues.ErrLineTooLong) {
			logging.WarnWithContext(logger, "subtitle row too long; skipped", "row_too_long",
				logging.Int("line", rowErr.Line),
				logging.Error(rowErr.Err),
				logging.String(logging.FieldErrorHint, "check for a missing line break near that line"),
				logging.String(logging.FieldImpact, "row omitted from document"),
			)
			return
		}
		logging.WarnWithContext(logger, "subtitle row has malformed quoting; using literal fields", "row_parse_failed",
			logging.Int("line", rowErr.Line),
			logging.Error(rowErr.Err),
			logging.String(logging.FieldErrorHint, "check quote characters on that line"),
			logging.String(logging.FieldImpact, "row text kept verbatim"),
		)
	}))

	var (
		kept  []cues.Cue
		stats Stats
	)
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cue, err := reader.NextCue()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if c.checkTimestamps(logger, index, cue, &stats) {
			kept = append(kept, cue)
		}
	}
	stats.Stats = reader.Stats()

	doc, err := detx.Build(kept, req.VideoPath, req.AudioPath, c.opts)
	if err != nil {
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}

	result := &Result{
		Document: data,
		Lines:    len(doc.Lines),
		Stats:    stats,
		Elapsed:  time.Since(started),
	}
	logger.Info("conversion complete",
		logging.String(logging.FieldEventType, "conversion_complete"),
		logging.Int("cues", result.Lines),
		logging.Int("dropped", stats.Dropped),
		logging.Int("row_errors", stats.RowErrors),
		logging.Int("malformed_timestamps", stats.Malformed),
		logging.Int64("document_bytes", int64(len(data))),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// checkTimestamps applies the policy and reports whether the cue is kept.
func (c *Converter) checkTimestamps(logger *slog.Logger, index int, cue cues.Cue, stats *Stats) bool {
	var bad []string
	for _, value := range []string{cue.Start, cue.End} {
		if !timecode.Valid(value) {
			bad = append(bad, value)
		}
	}
	if len(bad) == 0 {
		return true
	}
	stats.Malformed++
	if c.policy == PolicyReject {
		stats.Rejected++
		logging.WarnWithContext(logger, "cue dropped: malformed timestamp", "timestamp_rejected",
			logging.Int("cue_index", index),
			logging.String("timestamp", strings.Join(bad, ", ")),
			logging.String(logging.FieldErrorHint, "timestamps must be HH:MM:SS,mmm"),
			logging.String(logging.FieldImpact, "cue omitted from document"),
		)
		return false
	}
	logging.WarnWithContext(logger, "malformed timestamp copied verbatim", "timestamp_passthrough",
		logging.Int("cue_index", index),
		logging.String("timestamp", strings.Join(bad, ", ")),
		logging.String(logging.FieldErrorHint, "timestamps must be HH:MM:SS,mmm"),
		logging.String(logging.FieldImpact, "lipsync marker is not a frame timecode"),
	)
	return true
}
