package history

import (
	"errors"
	"time"

	"subdetx/internal/convert"
)

// Input names what a conversion was asked to do.
type Input struct {
	Source       Source
	SubtitleName string
	VideoPath    string
	AudioPath    string
}

// FromOutcome builds a history row from a finished conversion. A non-nil
// convErr marks the row failed and ignores result.
func FromOutcome(in Input, result *convert.Result, elapsed time.Duration, convErr error) *Conversion {
	c := &Conversion{
		Source:       in.Source,
		SubtitleName: in.SubtitleName,
		VideoPath:    in.VideoPath,
		AudioPath:    in.AudioPath,
		Duration:     elapsed,
	}
	if convErr != nil || result == nil {
		c.Status = StatusFailed
		if convErr == nil {
			convErr = errors.New("conversion produced no result")
		}
		c.ErrorMessage = convErr.Error()
		return c
	}
	c.Status = StatusSucceeded
	c.Cues = result.Lines
	c.Dropped = result.Stats.Dropped
	c.RowErrors = result.Stats.RowErrors
	c.Malformed = result.Stats.Malformed
	c.OutputBytes = int64(len(result.Document))
	if elapsed <= 0 {
		c.Duration = result.Elapsed
	}
	return c
}
