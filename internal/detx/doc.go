// Package detx assembles and serializes DETX lip-sync documents.
//
// A document references one video file (and optionally an audio file), carries
// a single placeholder speaker role, and holds one body line per cue. Each
// line brackets the cue text between an opening and a closing lipsync marker
// whose timecodes are derived from the cue timestamps.
//
// Build is a pure structural transform: it never reorders cues or checks
// timecode monotonicity. Fixed metadata (copyright, tool version, role
// identity, marker names, frame rate) lives in Options so callers and tests
// can vary it without touching assembly logic.
//
// Serialization is hand-written rather than delegated to encoding/xml: the
// consuming tool expects self-closing empty elements and `&quot;` entities,
// neither of which encoding/xml produces. Decode uses encoding/xml.
package detx
