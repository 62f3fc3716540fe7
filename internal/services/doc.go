// Package services defines shared utilities consumed by the batch scheduler,
// the engine adapters, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, item names, and worker numbers for
//     logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified consistently (validation vs external tool vs transient).
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the repository.
package services
