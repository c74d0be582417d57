// Package textutil provides filename helpers shared by the CLI and the
// HTTP server: sanitizing client-supplied names and deriving the .detx
// output name from a transcript name.
package textutil
