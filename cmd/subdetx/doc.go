// Package main hosts the subdetx CLI entrypoint and command graph.
//
// The Cobra-based command tree converts pipe-delimited subtitle transcripts
// into DETX documents, previews parsed cues, inspects existing documents,
// runs the HTTP upload server and the stdio MCP tool server, and reports
// history and readiness. It centralizes configuration resolution and logger
// setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: conversion semantics live in internal/convert and
// the packages beneath it; commands only gather inputs and render results.
package main
