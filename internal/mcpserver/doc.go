// Package mcpserver exposes the converter and the conversion history as
// Model Context Protocol tools served over stdio.
//
// Tools:
//   - convert_subtitles: transcript text plus a video reference in, DETX XML out.
//   - list_conversions: recent history rows as JSON.
//
// Tool failures (bad input, unparseable transcripts) are returned as tool
// errors so the calling agent sees the message; only protocol problems are
// returned as Go errors.
package mcpserver
