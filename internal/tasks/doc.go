// Package tasks implements the reconciliation engine that keeps a Tidal
// playlist in sync with Last.fm listening history.
//
// The core abstraction is Engine, which orchestrates history ingestion,
// playlist resolution, listened/duplicate detection, and optional purging.
// Operations emit progress updates via channels for non-blocking status
// reporting to the CLI layer.
package tasks
