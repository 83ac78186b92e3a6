// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, manga/chapter identifiers, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper, and StageError which
//     carries the failing stage name alongside the original cause.
//   - Fatal, which separates failures that degrade a run (cache, per-page
//     classification) from those that abort it.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
