// Package mix describes practice-track jobs.
//
// A batch of part recordings becomes one Job per part: the part itself
// (the primary) is routed to the left channel and every other part (its
// companions) is mixed onto the right channel. The package builds the jobs
// and the ffmpeg filter graph for each one; it performs no I/O.
package mix
