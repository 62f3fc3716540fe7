// Package config loads, normalizes, and validates partmix configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the scratch
// and output directories, the engine binaries, and the batch scheduling
// policy so the CLI and the scheduler see the same sanitized values.
package config
