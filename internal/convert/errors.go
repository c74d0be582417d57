package convert

import (
	"context"
	"errors"

	"subdetx/internal/detx"
)

var (
	// ErrMissingSubtitles reports a request without a subtitle stream.
	ErrMissingSubtitles = errors.New("subtitle file is required")
	// ErrMissingVideo reports a request without a video reference.
	ErrMissingVideo = detx.ErrMissingVideo
	// ErrParse marks a failure reading the subtitle stream itself.
	ErrParse = errors.New("parse subtitles")
	// ErrSerialize marks a failure writing the document.
	ErrSerialize = errors.New("serialize document")
)

// Kind classifies a conversion failure.
type Kind int

const (
	KindInternal Kind = iota
	KindPrecondition
	KindParse
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindParse:
		return "parse"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// KindOf maps err onto a Kind. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrMissingSubtitles), errors.Is(err, ErrMissingVideo):
		return KindPrecondition
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
