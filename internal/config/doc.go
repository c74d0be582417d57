// Package config loads, normalizes, and validates subdetx configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBDETX_API_TOKEN and PORT. The Config type centralizes every knob the
// server and CLI need: staging and data directories, upload limits, the
// metadata stamped into generated DETX documents, and logging.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
