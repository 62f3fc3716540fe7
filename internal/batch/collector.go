package batch

import (
	"cmp"
	"slices"
	"sync"

	"partmix/internal/services"
)

// Result is the rendered output for one successful item.
type Result struct {
	Name    string
	Payload []byte
	Index   int
}

// Failure records an item whose job did not produce output.
type Failure struct {
	Name  string
	Index int
	Err   error
}

// Kind classifies the failure for logs and tables.
func (f Failure) Kind() string {
	return services.Classify(f.Err)
}

// ResultCollector buffers results as they arrive and restores submission order.
type ResultCollector struct {
	mu       sync.Mutex
	results  []Result
	failures []Failure
}

// Add records a successful result.
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Fail records a failed item.
func (c *ResultCollector) Fail(failure Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, failure)
}

// Sorted returns results ordered by submission index.
func (c *ResultCollector) Sorted() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.results)
	slices.SortFunc(out, func(a, b Result) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// Failures returns failures ordered by submission index.
func (c *ResultCollector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.failures)
	slices.SortFunc(out, func(a, b Failure) int { return cmp.Compare(a.Index, b.Index) })
	return out
}
