package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"partmix/internal/logging"
	"partmix/internal/mix"
)

// State is the lifecycle position of an execution context.
type State int

const (
	StateIdle State = iota
	StateStaging
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStaging:
		return "staging"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Context is one isolated engine instance bound to at most one job at a time.
type Context struct {
	id     int
	handle Handle
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	run        uint64
	cancelRun  context.CancelFunc
	terminated bool
}

// New loads an engine instance. Failures are returned as *LoadError.
func New(ctx context.Context, eng Engine, id int, logger *slog.Logger) (*Context, error) {
	if eng == nil {
		return nil, &LoadError{Context: id, Err: errors.New("engine unavailable")}
	}
	handle, err := eng.Load(ctx)
	if err != nil {
		return nil, &LoadError{Context: id, Err: err}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Context{
		id:     id,
		handle: handle,
		logger: logger.With(logging.Int("engine_context", id)),
	}, nil
}

// ID returns the context's position in its pool.
func (c *Context) ID() int { return c.id }

// State reports the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) beginStage() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.terminated:
		return ErrTerminated
	case c.state == StateRunning:
		return ErrBusy
	}
	c.state = StateStaging
	return nil
}

// Stage writes a named input into the context's scratch space. A failed
// stage leaves the context idle.
func (c *Context) Stage(ctx context.Context, name string, data []byte) error {
	if err := c.beginStage(); err != nil {
		return &StagingError{Name: name, Err: err}
	}
	if err := c.handle.Stage(ctx, name, data); err != nil {
		c.mu.Lock()
		if c.state == StateStaging {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return &StagingError{Name: name, Err: err}
	}
	return nil
}

// Run executes job and sends its progress on progress, which Run closes
// before returning. Sent values stay within 0..100 and never decrease.
// Failures are returned as *RunError; a second Run while one is in flight
// fails with ErrBusy.
func (c *Context) Run(ctx context.Context, job mix.Job, progress chan<- int) ([]byte, error) {
	if progress != nil {
		defer close(progress)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	switch {
	case c.terminated:
		c.mu.Unlock()
		return nil, &RunError{Item: job.Primary.Name, Err: ErrTerminated}
	case c.state == StateRunning:
		c.mu.Unlock()
		return nil, &RunError{Item: job.Primary.Name, Err: ErrBusy}
	}
	c.state = StateRunning
	c.run++
	run := c.run
	c.cancelRun = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.run == run {
			c.cancelRun = nil
			if !c.terminated {
				c.state = StateIdle
			}
		}
		c.mu.Unlock()
	}()

	last := -1
	report := func(percent int) {
		percent = min(max(percent, 0), 100)
		if percent <= last || progress == nil {
			return
		}
		last = percent
		select {
		case progress <- percent:
		case <-runCtx.Done():
		}
	}

	out, err := c.handle.Run(runCtx, job, report)
	if err != nil {
		return nil, &RunError{Item: job.Primary.Name, Err: err}
	}
	c.mu.Lock()
	terminated := c.terminated
	c.mu.Unlock()
	if terminated {
		return nil, &RunError{Item: job.Primary.Name, Err: ErrTerminated}
	}
	return out, nil
}

// Release removes staged entries. Failures are logged, not returned.
func (c *Context) Release(ctx context.Context, names ...string) {
	for _, name := range names {
		if err := c.handle.Unstage(ctx, name); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, c.logger), "release staged entry failed", "engine_release_failed",
				logging.String("name", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check scratch directory permissions"),
				logging.String(logging.FieldImpact, "scratch space reclaimed at teardown"),
			)
		}
	}
}

// Terminate aborts any in-flight run and releases the engine instance.
// Only the first call does any work; later calls return nil.
func (c *Context) Terminate() error {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return nil
	}
	c.terminated = true
	c.state = StateTerminated
	cancel := c.cancelRun
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return c.handle.Terminate()
}
