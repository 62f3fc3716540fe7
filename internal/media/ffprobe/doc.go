// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties (codec, sample rate, channels)
//   - Format: container-level metadata
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - ProbeDuration: returns the duration of an audio file
package ffprobe
