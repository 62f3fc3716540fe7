package batch

import (
	"fmt"

	"partmix/internal/services"
)

// PoolInitError reports that the engine pool could not be built. No worker
// starts after a PoolInitError.
type PoolInitError struct {
	Size int
	Err  error
}

func (e *PoolInitError) Error() string {
	return fmt.Sprintf("build pool of %d engine contexts: %v", e.Size, e.Err)
}

func (e *PoolInitError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }

// TeardownError reports that an engine context failed to terminate. It is
// logged and never returned to the caller.
type TeardownError struct {
	Context int
	Err     error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("terminate engine context %d: %v", e.Context, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
