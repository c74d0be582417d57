// Package convert runs the subtitle-to-DETX pipeline: it reads cues from a
// pipe-delimited transcript, applies the malformed-timestamp policy, builds the
// document, and serializes it.
//
// A Converter is immutable after construction and safe to share across
// goroutines; every call to Convert owns its cue slice and document. Errors are
// sentinels wrapped with %w; KindOf classifies them so transports can pick a
// status code without string matching.
package convert
