// Package main hosts the partmix CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds a logger from it,
// and hands the heavy lifting to the internal packages: `mix` drives a batch
// through the coordinator and the ffmpeg engine, `doctor` reports binary and
// directory health, and `config` scaffolds and inspects configuration files.
//
// Keep this package lean. New behaviour belongs in internal packages first and
// is surfaced here through commands or flags.
package main
