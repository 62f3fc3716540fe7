package batch

import "runtime"

// DefaultDivisor scales hardware parallelism down to engine contexts; each
// engine process is itself multi-threaded.
const DefaultDivisor = 4

// PoolSize returns min(items, max(1, parallelism/divisor)). A parallelism of
// zero or less means runtime.NumCPU(); a divisor of zero or less means
// DefaultDivisor. No contexts are needed for an empty batch.
func PoolSize(parallelism, divisor, items int) int {
	if items <= 0 {
		return 0
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if divisor <= 0 {
		divisor = DefaultDivisor
	}
	return min(items, max(1, parallelism/divisor))
}
