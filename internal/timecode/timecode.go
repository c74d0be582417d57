// Package timecode converts millisecond subtitle timestamps into frame-based
// timecodes.
package timecode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// DefaultFPS is the frame rate used when callers do not supply one.
const DefaultFPS = 25

// ErrMalformed reports a timestamp that is not in `HH:MM:SS,mmm` form.
var ErrMalformed = errors.New("malformed timestamp")

var (
	timestampPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)
	timecodePattern  = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2}):(\d{2})$`)
)

// Timestamp is a parsed `HH:MM:SS,mmm` value.
type Timestamp struct {
	Hours        int
	Minutes      int
	Seconds      int
	Milliseconds int
}

// Parse reads a timestamp of exactly `HH:MM:SS,mmm`.
func Parse(value string) (Timestamp, error) {
	match := timestampPattern.FindStringSubmatch(value)
	if match == nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrMalformed, value)
	}
	// The pattern guarantees digits, so Atoi cannot fail.
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	millis, _ := strconv.Atoi(match[4])
	return Timestamp{Hours: hours, Minutes: minutes, Seconds: seconds, Milliseconds: millis}, nil
}

// Valid reports whether value can be converted.
func Valid(value string) bool {
	return timestampPattern.MatchString(value)
}

// TotalMilliseconds returns the timestamp as an offset in milliseconds.
func (t Timestamp) TotalMilliseconds() int64 {
	return int64(t.Hours)*3_600_000 + int64(t.Minutes)*60_000 + int64(t.Seconds)*1000 + int64(t.Milliseconds)
}

// Rebased moves hour 00 to 01 so timelines start at 01:00:00:00. Other hours
// are unchanged.
func (t Timestamp) Rebased() Timestamp {
	if t.Hours == 0 {
		t.Hours = 1
	}
	return t
}

// Timecode converts the timestamp to frames at fps. The frame count is
// rounded half up; a result equal to fps rolls over to frame 00 and carries
// into the seconds (and on into minutes and hours).
func (t Timestamp) Timecode(fps int) Timecode {
	if fps <= 0 {
		fps = DefaultFPS
	}
	tc := Timecode{
		Hours:   t.Hours,
		Minutes: t.Minutes,
		Seconds: t.Seconds,
		Frames:  MillisecondsToFrames(t.Milliseconds, fps),
	}
	if tc.Frames >= fps {
		tc.Frames -= fps
		tc.Seconds++
		if tc.Seconds == 60 {
			tc.Seconds = 0
			tc.Minutes++
			if tc.Minutes == 60 {
				tc.Minutes = 0
				tc.Hours++
			}
		}
	}
	return tc
}

// Timecode is a frame-accurate `HH:MM:SS:FF` position.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

func (tc Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", tc.Hours, tc.Minutes, tc.Seconds, tc.Frames)
}

// ParseTimecode reads an `HH:MM:SS:FF` value.
func ParseTimecode(value string) (Timecode, error) {
	match := timecodePattern.FindStringSubmatch(value)
	if match == nil {
		return Timecode{}, fmt.Errorf("%w: %q is not HH:MM:SS:FF", ErrMalformed, value)
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	frames, _ := strconv.Atoi(match[4])
	if minutes > 59 || seconds > 59 {
		return Timecode{}, fmt.Errorf("%w: %q out of range", ErrMalformed, value)
	}
	return Timecode{Hours: hours, Minutes: minutes, Seconds: seconds, Frames: frames}, nil
}

// TotalMilliseconds returns the position in milliseconds at fps.
func (tc Timecode) TotalMilliseconds(fps int) int64 {
	if fps <= 0 {
		fps = DefaultFPS
	}
	whole := int64(tc.Hours)*3_600_000 + int64(tc.Minutes)*60_000 + int64(tc.Seconds)*1000
	return whole + int64(FramesToMilliseconds(tc.Frames, fps))
}

// MillisecondsToFrames returns round(ms * fps / 1000), halves rounded up.
func MillisecondsToFrames(ms, fps int) int {
	return (ms*fps*2 + 1000) / 2000
}

// FramesToMilliseconds returns the millisecond offset of a frame at fps.
func FramesToMilliseconds(frames, fps int) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return (frames*2000 + fps) / (2 * fps)
}

// Convert maps an `HH:MM:SS,mmm` timestamp to `HH:MM:SS:FF` at fps, with hour
// 00 rebased to 01. Input that does not match the expected shape is returned
// unchanged with ok set to false.
func Convert(value string, fps int) (string, bool) {
	ts, err := Parse(value)
	if err != nil {
		return value, false
	}
	return ts.Rebased().Timecode(fps).String(), true
}

// Format converts at DefaultFPS, passing malformed input through.
func Format(value string) string {
	out, _ := Convert(value, DefaultFPS)
	return out
}
