// Package enginetest provides an in-memory engine for scheduler tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"partmix/internal/engine"
	"partmix/internal/mix"
)

// ErrKilled is returned by a run aborted through Terminate.
var ErrKilled = errors.New("fake engine killed")

// Engine hands out fake handles and records how they were used.
type Engine struct {
	// FailLoad makes the load with this 1-based ordinal fail with LoadErr.
	FailLoad int
	LoadErr  error
	// LoadDelay is applied to every load before it succeeds or fails.
	LoadDelay time.Duration

	// FailRun maps primary names to the error their run returns once it
	// reaches 50 percent.
	FailRun map[string]error
	// FailStage maps staged names to the error staging returns.
	FailStage map[string]error
	// Steps are the percentages every run reports; nil means 0,25,50,75,100.
	Steps []int
	// StepDelay is slept between reported steps.
	StepDelay time.Duration
	// ItemDelay adds a per-primary delay before the first step.
	ItemDelay map[string]time.Duration
	// Hold, when set, blocks every run after its first step until closed.
	Hold chan struct{}
	// Started receives the primary name of every run as it begins, when set.
	Started chan string

	mu        sync.Mutex
	loads     int
	handles   []*Handle
	active    int
	maxActive int
}

// Load creates a fake handle.
func (e *Engine) Load(ctx context.Context) (engine.Handle, error) {
	e.mu.Lock()
	e.loads++
	ordinal := e.loads
	e.mu.Unlock()

	if e.LoadDelay > 0 {
		select {
		case <-time.After(e.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.FailLoad > 0 && ordinal == e.FailLoad {
		if e.LoadErr != nil {
			return nil, e.LoadErr
		}
		return nil, fmt.Errorf("fake load %d failed", ordinal)
	}

	h := &Handle{engine: e, id: ordinal, staged: make(map[string][]byte), killed: make(chan struct{})}
	e.mu.Lock()
	e.handles = append(e.handles, h)
	e.mu.Unlock()
	return h, nil
}

// Loads reports how many loads were attempted.
func (e *Engine) Loads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

// Handles returns the successfully loaded handles.
func (e *Engine) Handles() []*Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.handles)
}

// MaxConcurrentRuns reports the highest number of runs in flight at once.
func (e *Engine) MaxConcurrentRuns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

// TotalStages sums staging calls across handles.
func (e *Engine) TotalStages() int {
	total := 0
	for _, h := range e.Handles() {
		total += h.StageCalls()
	}
	return total
}

func (e *Engine) runStarted() {
	e.mu.Lock()
	e.active++
	e.maxActive = max(e.maxActive, e.active)
	e.mu.Unlock()
}

func (e *Engine) runFinished() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

// Handle is one fake engine instance.
type Handle struct {
	engine *Engine
	id     int

	mu           sync.Mutex
	staged       map[string][]byte
	stageCalls   int
	runs         []string
	busy         bool
	overlaps     int
	terminations int
	killed       chan struct{}
}

// ID returns the load ordinal of the handle.
func (h *Handle) ID() int { return h.id }

func (h *Handle) Stage(_ context.Context, name string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stageCalls++
	if err, ok := h.engine.FailStage[name]; ok {
		return err
	}
	h.staged[name] = slices.Clone(data)
	return nil
}

// Run renders "L=<primary>|R=<companions joined by +>" into the job's output name.
func (h *Handle) Run(ctx context.Context, job mix.Job, report func(int)) ([]byte, error) {
	h.mu.Lock()
	if h.busy {
		h.overlaps++
	}
	h.busy = true
	h.runs = append(h.runs, job.Primary.Name)
	h.mu.Unlock()
	h.engine.runStarted()
	defer func() {
		h.engine.runFinished()
		h.mu.Lock()
		h.busy = false
		h.mu.Unlock()
	}()

	if h.engine.Started != nil {
		h.engine.Started <- job.Primary.Name
	}

	var parts []string
	h.mu.Lock()
	for _, name := range job.InputNames() {
		data, ok := h.staged[name]
		if !ok {
			h.mu.Unlock()
			return nil, fmt.Errorf("input %q not staged", name)
		}
		parts = append(parts, string(data))
	}
	h.mu.Unlock()

	steps := h.engine.Steps
	if steps == nil {
		steps = []int{0, 25, 50, 75, 100}
	}
	if err := h.wait(ctx, h.engine.ItemDelay[job.Primary.Name]); err != nil {
		return nil, err
	}
	for i, step := range steps {
		if err := h.wait(ctx, h.engine.StepDelay); err != nil {
			return nil, err
		}
		if err, ok := h.engine.FailRun[job.Primary.Name]; ok && step >= 50 {
			return nil, err
		}
		report(step)
		if i == 0 {
			if err := h.hold(ctx); err != nil {
				return nil, err
			}
		}
	}
	if err, ok := h.engine.FailRun[job.Primary.Name]; ok {
		return nil, err
	}

	out := []byte("L=" + parts[0] + "|R=" + strings.Join(parts[1:], "+"))
	h.mu.Lock()
	h.staged[job.OutputName()] = out
	h.mu.Unlock()
	return slices.Clone(out), nil
}

func (h *Handle) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-h.killed:
			return ErrKilled
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-h.killed:
		return ErrKilled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) hold(ctx context.Context) error {
	if h.engine.Hold == nil {
		return nil
	}
	select {
	case <-h.engine.Hold:
		return nil
	case <-h.killed:
		return ErrKilled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) Unstage(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.staged, name)
	return nil
}

func (h *Handle) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminations++
	if h.terminations == 1 {
		close(h.killed)
	}
	h.staged = make(map[string][]byte)
	return nil
}

// StageCalls reports how many staging attempts reached the handle.
func (h *Handle) StageCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stageCalls
}

// Staged lists the names currently staged, sorted.
func (h *Handle) Staged() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.staged))
	for name := range h.staged {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Runs lists the primary names run on this handle, in order.
func (h *Handle) Runs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.runs)
}

// Overlaps counts runs that started while another run was in flight.
func (h *Handle) Overlaps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlaps
}

// Terminations counts Terminate calls that reached the handle.
func (h *Handle) Terminations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminations
}
