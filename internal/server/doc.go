// Package server exposes the converter over HTTP.
//
// Routes:
//   - POST /convert accepts a multipart upload (subtitles file plus videoPath
//     and optional audioPath) and answers with the .detx document as an
//     attachment.
//   - GET /api/health reports liveness.
//   - GET /api/conversions lists recent history rows; it requires a bearer
//     token when server.api_token is set.
//   - GET / serves the embedded upload form.
//
// Uploads are staged in a per-request directory under paths.staging_dir that
// is removed once the response is written. Run holds a flock on the data
// directory so two servers never share a staging tree.
package server
