// Package staging manages the per-request directories that hold uploaded
// transcripts while a conversion runs.
//
// The server creates one uuid-named directory per POST /convert under
// paths.staging_dir and removes it when the response is written. CleanStale
// runs at startup to reclaim directories abandoned by a crash.
package staging
