package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"partmix/internal/engine"
	"partmix/internal/logging"
	"partmix/internal/mix"
	"partmix/internal/services"
)

// Options configures a Coordinator.
type Options struct {
	Engine engine.Engine
	// Parallelism is the hardware hint; zero or less means runtime.NumCPU().
	Parallelism int
	// Divisor scales Parallelism down to contexts; zero or less means DefaultDivisor.
	Divisor  int
	Params   mix.Params
	Logger   *slog.Logger
	Observer Observer
	// BatchID correlates logs; a random UUID is used when empty.
	BatchID string
}

// Outcome is what a finished batch hands back to its caller.
type Outcome struct {
	BatchID string
	State   State
	// Results holds successful items in submission order.
	Results []Result
	// Failures holds failed items in submission order.
	Failures []Failure
	// PoolSize is the number of engine contexts the batch used.
	PoolSize int
	Elapsed  time.Duration
}

// Snapshot is a point-in-time view for observers.
type Snapshot struct {
	BatchID  string
	State    State
	Phase    string
	Progress map[string]int
	// Overall is the mean of Progress, 0 for an empty batch.
	Overall  int
}

// Coordinator runs exactly one batch.
type Coordinator struct {
	engine      engine.Engine
	parallelism int
	divisor     int
	params      mix.Params
	logger      *slog.Logger
	observer    Observer
	batchID     string

	mu        sync.RWMutex
	state     State
	phase     string
	submitted bool
	progress  *ProgressAggregator
	collector *ResultCollector
	samplers  map[string]*logging.ProgressSampler
}

// NewCoordinator constructs an idle coordinator.
func NewCoordinator(opts Options) *Coordinator {
	batchID := opts.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Coordinator{
		engine:      opts.Engine,
		parallelism: opts.Parallelism,
		divisor:     opts.Divisor,
		params:      opts.Params,
		logger:      logging.NewComponentLogger(opts.Logger, "batch"),
		observer:    observer,
		batchID:     batchID,
		state:       StateIdle,
		phase:       "idle",
		progress:    NewProgressAggregator(nil),
		collector:   &ResultCollector{},
	}
}

// BatchID returns the batch correlation identifier.
func (c *Coordinator) BatchID() string { return c.batchID }

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the phase label, a copy of per-item progress, and its mean.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	state, phase, progress := c.state, c.phase, c.progress
	c.mu.RUnlock()
	return Snapshot{
		BatchID:  c.batchID,
		State:    state,
		Phase:    phase,
		Progress: progress.Snapshot(),
		Overall:  progress.Overall(),
	}
}

// Run processes inputs and blocks until the batch reaches a terminal state.
// Per-item failures are reported in Outcome.Failures and do not fail the
// batch. Invalid input, pool construction failure, and cancellation of ctx
// return an error with an Outcome in StateFailed and no results.
func (c *Coordinator) Run(ctx context.Context, inputs []Input) (Outcome, error) {
	start := time.Now()
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return Outcome{BatchID: c.batchID, State: c.State()}, services.Wrap(services.ErrValidation, "batch", "submit", "coordinator already ran a batch", nil)
	}
	c.submitted = true
	c.mu.Unlock()

	ctx = services.WithBatchID(ctx, c.batchID)
	logger := logging.WithContext(ctx, c.logger)

	fail := func(err error, size int) (Outcome, error) {
		c.setPhase(StateFailed, "failed")
		logging.ErrorWithContext(logger, "batch failed", "batch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Classify(err)),
			logging.Duration("elapsed", time.Since(start)),
		)
		return Outcome{BatchID: c.batchID, State: StateFailed, PoolSize: size, Elapsed: time.Since(start)}, err
	}

	items, err := buildItems(inputs, c.params)
	if err != nil {
		return fail(err, 0)
	}
	if c.engine == nil {
		return fail(services.Wrap(services.ErrConfiguration, "batch", "submit", "engine unavailable", nil), 0)
	}

	c.setPhase(StateInitializing, "initializing")
	jobs := mix.BuildJobs(items, c.params)
	queue := NewJobQueue(jobs)
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	c.mu.Lock()
	c.progress = NewProgressAggregator(names)
	c.samplers = make(map[string]*logging.ProgressSampler, len(names))
	c.mu.Unlock()

	size := PoolSize(c.parallelism, c.divisor, len(items))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("items", len(items)),
		logging.Int("pool_size", size),
		logging.Int("balance", c.params.Balance),
	)

	var p *pool
	if size > 0 {
		p, err = buildPool(ctx, c.engine, size, c.logger)
		if err != nil {
			return fail(err, size)
		}
		c.setPhase(StateRunning, fmt.Sprintf("processing %d items", len(items)))
		c.runWorkers(ctx, p, queue)
		c.setPhase(StateFinalizing, "finalizing")
		p.teardown()
	} else {
		c.setPhase(StateRunning, "processing 0 items")
		c.setPhase(StateFinalizing, "finalizing")
	}

	if err := ctx.Err(); err != nil {
		logger.Info("batch cancelled",
			logging.String(logging.FieldEventType, "batch_cancelled"),
			logging.Int("unstarted", queue.Len()),
		)
		return fail(fmt.Errorf("batch cancelled: %w", err), size)
	}

	outcome := Outcome{
		BatchID:  c.batchID,
		State:    StateCompleted,
		Results:  c.collector.Sorted(),
		Failures: c.collector.Failures(),
		PoolSize: size,
		Elapsed:  time.Since(start),
	}
	c.setPhase(StateCompleted, "completed")
	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", len(outcome.Results)),
		logging.Int("failed", len(outcome.Failures)),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

// runWorkers starts one worker per context and folds their events until all
// of them have exited.
func (c *Coordinator) runWorkers(ctx context.Context, p *pool, queue *JobQueue) {
	events := make(chan event, 4*len(p.contexts))
	var wg sync.WaitGroup
	for i, ectx := range p.contexts {
		w := &worker{id: i + 1, ectx: ectx, queue: queue, events: events, logger: c.logger}
		wg.Go(func() { w.run(ctx) })
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	for ev := range events {
		c.handle(ctx, ev)
	}
}

func (c *Coordinator) handle(ctx context.Context, ev event) {
	logger := logging.WithContext(services.WithItem(services.WithWorker(ctx, ev.worker), ev.name), c.logger)
	switch ev.kind {
	case eventProgress:
		c.progress.Update(ev.name, ev.percent)
		if c.sampler(ev.name, ev.percent).ShouldLog(ev.percent) {
			logger.Info("job progress",
				logging.String(logging.FieldEventType, "job_progress"),
				logging.Int(logging.FieldProgressPercent, ev.percent),
			)
		}
		c.observer.ItemProgress(ev.name, ev.percent)
	case eventResult:
		c.collector.Add(ev.result)
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Int("output_bytes", len(ev.result.Payload)),
		)
		c.observer.ItemCompleted(ev.result)
	case eventFailure:
		c.collector.Fail(ev.failure)
		logging.WarnWithContext(logger, "job failed", "job_failed",
			logging.Error(ev.failure.Err),
			logging.String(logging.FieldErrorKind, ev.failure.Kind()),
			logging.String(logging.FieldErrorHint, "rerun with --log-level debug to see the engine output"),
			logging.String(logging.FieldImpact, "item omitted from results; batch continues"),
		)
		c.observer.ItemFailed(ev.failure)
	}
}

// sampler returns the item's progress sampler, resetting it when a job starts.
func (c *Coordinator) sampler(name string, percent int) *logging.ProgressSampler {
	s, ok := c.samplers[name]
	if !ok {
		s = logging.NewProgressSampler(10)
		c.samplers[name] = s
	}
	if percent == 0 {
		s.Reset()
	}
	return s
}

func (c *Coordinator) setPhase(state State, label string) {
	c.mu.Lock()
	c.state = state
	c.phase = label
	c.mu.Unlock()
	c.logger.Debug("batch phase changed",
		logging.String(logging.FieldEventType, "batch_phase"),
		logging.String(logging.FieldBatchID, c.batchID),
		logging.String("state", state.String()),
		logging.String("phase", label),
	)
	c.observer.PhaseChanged(state, label)
}
