package batch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"partmix/internal/engine"
	"partmix/internal/logging"
)

// pool owns the engine contexts of one batch.
type pool struct {
	contexts []*engine.Context
	logger   *slog.Logger
	once     sync.Once
}

// buildPool loads size contexts concurrently. If any load fails, the contexts
// already created are terminated and a *PoolInitError is returned.
func buildPool(ctx context.Context, eng engine.Engine, size int, logger *slog.Logger) (*pool, error) {
	contexts := make([]*engine.Context, size)
	g, gctx := errgroup.WithContext(ctx)
	for i := range size {
		g.Go(func() error {
			ectx, err := engine.New(gctx, eng, i+1, logger)
			if err != nil {
				return err
			}
			contexts[i] = ectx
			return nil
		})
	}
	err := g.Wait()

	p := &pool{contexts: contexts, logger: logger}
	if err != nil {
		p.teardown()
		return nil, &PoolInitError{Size: size, Err: err}
	}
	return p, nil
}

// teardown terminates every context once. Failures are logged only.
func (p *pool) teardown() {
	p.once.Do(func() {
		for _, ectx := range p.contexts {
			if ectx == nil {
				continue
			}
			if err := ectx.Terminate(); err != nil {
				terr := &TeardownError{Context: ectx.ID(), Err: err}
				logging.WarnWithContext(p.logger, "engine context teardown failed", "teardown_failed",
					logging.Error(terr),
					logging.String(logging.FieldErrorHint, "stale scratch is removed by a later run once it exceeds stale_scratch_hours"),
					logging.String(logging.FieldImpact, "scratch space may remain on disk"),
				)
			}
		}
	})
}
