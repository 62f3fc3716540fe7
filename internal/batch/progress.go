package batch

import (
	"maps"
	"sync"
)

// ProgressAggregator maps item names to completion percentages. Writers and
// snapshot readers may run concurrently.
type ProgressAggregator struct {
	mu      sync.RWMutex
	percent map[string]int
}

// NewProgressAggregator seeds every name at 0.
func NewProgressAggregator(names []string) *ProgressAggregator {
	p := &ProgressAggregator{percent: make(map[string]int, len(names))}
	for _, name := range names {
		p.percent[name] = 0
	}
	return p
}

// Update overwrites the percentage recorded for name.
func (p *ProgressAggregator) Update(name string, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent[name] = percent
}

// Snapshot returns a copy safe for the caller to keep.
func (p *ProgressAggregator) Snapshot() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.percent)
}

// Overall averages every item's percentage.
func (p *ProgressAggregator) Overall() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.percent) == 0 {
		return 0
	}
	total := 0
	for _, v := range p.percent {
		total += v
	}
	return total / len(p.percent)
}
