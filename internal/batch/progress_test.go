package batch

import (
	"sync"
	"testing"
)

func TestProgressAggregatorSeedsAndSnapshots(t *testing.T) {
	p := NewProgressAggregator([]string{"a.mp3", "b.mp3"})
	snap := p.Snapshot()
	if len(snap) != 2 || snap["a.mp3"] != 0 || snap["b.mp3"] != 0 {
		t.Fatalf("unexpected seed snapshot %v", snap)
	}

	p.Update("a.mp3", 40)
	snap["a.mp3"] = 99
	if got := p.Snapshot()["a.mp3"]; got != 40 {
		t.Fatalf("snapshot mutation leaked into aggregator: %d", got)
	}
	p.Update("b.mp3", 60)
	if p.Overall() != 50 {
		t.Fatalf("expected overall 50, got %d", p.Overall())
	}
}

func TestProgressAggregatorConcurrentWritersAndReaders(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	p := NewProgressAggregator(names)
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Go(func() {
			for pct := range 101 {
				p.Update(name, pct)
			}
		})
	}
	wg.Go(func() {
		for range 200 {
			_ = p.Snapshot()
		}
	})
	wg.Wait()
	for name, pct := range p.Snapshot() {
		if pct != 100 {
			t.Fatalf("%s ended at %d", name, pct)
		}
	}
}
