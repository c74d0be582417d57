// Package cues reads pipe-delimited subtitle transcripts into timed cues.
//
// A transcript is a header line followed by one row per physical line, each
// row carrying `TimerStart|TimerEnd|Text` plus any number of ignored trailing
// fields. The Reader is a pull-based, single-pass sequence: callers ask for
// the next row (or range over Rows/Cues) and the underlying stream is only
// read as far as needed. Malformed quoting never aborts a read; the row is
// reported through the warning hook and its content is taken literally.
//
// StripDirectives removes `{...}` presentation tags from dialogue text and is
// applied to every cue the package produces.
package cues
