// Package ffmpeg implements engine.Engine on top of the ffmpeg and ffprobe
// binaries.
//
// Every loaded handle owns a private scratch directory. Runs invoke ffmpeg
// with -progress pipe:1 and convert out_time_us into a percentage of the
// expected output duration, which is probed with ffprobe before the run.
package ffmpeg
