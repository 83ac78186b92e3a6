// Package logging assembles structured slog loggers and formatting helpers used
// across mangarecap.
//
// It owns the configurable console/JSON handlers, tees console output into a
// JSON log file, and exposes context-aware helpers so stage code can tag log
// lines with run IDs, manga/chapter identifiers and stage names. The package
// also provides a no-op logger for tests and a progress sampler for long
// encodes.
package logging
