package engine

import (
	"context"

	"partmix/internal/mix"
)

// Engine loads isolated engine instances.
type Engine interface {
	Load(ctx context.Context) (Handle, error)
}

// Handle is one loaded engine instance. A Handle runs one job at a time;
// Terminate may be called concurrently with Run and must abort it.
type Handle interface {
	// Stage writes a named input into the handle's private scratch space.
	Stage(ctx context.Context, name string, data []byte) error
	// Run executes job against previously staged inputs and returns the
	// output bytes. report receives raw percentages while the job runs; it
	// must not be called concurrently or after Run returns.
	Run(ctx context.Context, job mix.Job, report func(percent int)) ([]byte, error)
	// Unstage removes a staged input or output.
	Unstage(ctx context.Context, name string) error
	// Terminate releases every resource held by the handle.
	Terminate() error
}
