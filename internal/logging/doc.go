// Package logging assembles structured slog loggers and formatting helpers used
// across partmix.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scheduler code can tag log
// lines with batch IDs, worker numbers, and item names. The package also
// provides a no-op logger for tests and a progress sampler that keeps per-item
// progress logging readable when many jobs run at once.
package logging
