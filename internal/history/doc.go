// Package history records finished conversions in SQLite so operators can
// audit what the server and CLI produced.
//
// Each row captures the input names, the cue counters reported by the
// pipeline, the output size, and the failure message when a conversion did
// not complete. The database lives under paths.data_dir. Schema changes bump
// schemaVersion in schema.go; older databases are rejected with
// ErrSchemaMismatch and must be deleted.
package history
