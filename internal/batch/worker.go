package batch

import (
	"context"
	"log/slog"

	"partmix/internal/engine"
	"partmix/internal/logging"
	"partmix/internal/mix"
	"partmix/internal/services"
)

type eventKind int

const (
	eventProgress eventKind = iota
	eventResult
	eventFailure
)

// event is the only way workers report back to the coordinator.
type event struct {
	kind    eventKind
	worker  int
	name    string
	percent int
	result  Result
	failure Failure
}

// worker binds one engine context to successive jobs from the queue.
type worker struct {
	id     int
	ectx   *engine.Context
	queue  *JobQueue
	events chan<- event
	logger *slog.Logger
}

// run drains the queue. Per-item failures are reported and never end the loop;
// cancellation of ctx stops it before the next pop.
func (w *worker) run(ctx context.Context) {
	ctx = services.WithWorker(ctx, w.id)
	for ctx.Err() == nil {
		job, ok := w.queue.Pop()
		if !ok {
			return
		}
		w.process(ctx, job)
	}
}

func (w *worker) process(ctx context.Context, job mix.Job) {
	name := job.Primary.Name
	ctx = services.WithItem(ctx, name)
	logger := logging.WithContext(ctx, w.logger)
	logger.Debug("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("companions", len(job.Companions)),
	)
	w.events <- event{kind: eventProgress, worker: w.id, name: name, percent: 0}

	staged := make([]string, 0, len(job.Companions)+2)
	defer func() {
		w.ectx.Release(ctx, staged...)
	}()

	inputs := append([]mix.Item{job.Primary}, job.Companions...)
	for _, item := range inputs {
		if err := w.ectx.Stage(ctx, item.Name, item.Payload); err != nil {
			w.fail(ctx, job, err)
			return
		}
		staged = append(staged, item.Name)
	}
	staged = append(staged, job.OutputName())

	progress := make(chan int, 8)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for percent := range progress {
			w.events <- event{kind: eventProgress, worker: w.id, name: name, percent: percent}
		}
	}()
	out, err := w.ectx.Run(ctx, job, progress)
	<-forwarded

	if err != nil {
		w.fail(ctx, job, err)
		return
	}
	w.events <- event{
		kind:   eventResult,
		worker: w.id,
		name:   name,
		result: Result{Name: name, Payload: out, Index: job.Primary.Index},
	}
}

// fail reports a per-item failure unless the batch itself is being cancelled,
// in which case the aborted job's outcome is discarded.
func (w *worker) fail(ctx context.Context, job mix.Job, err error) {
	if ctx.Err() != nil {
		return
	}
	w.events <- event{
		kind:    eventFailure,
		worker:  w.id,
		name:    job.Primary.Name,
		failure: Failure{Name: job.Primary.Name, Index: job.Primary.Index, Err: err},
	}
}
