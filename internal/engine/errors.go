package engine

import (
	"errors"
	"fmt"

	"partmix/internal/services"
)

// ErrTerminated is returned by operations on a terminated context.
var ErrTerminated = errors.New("execution context terminated")

// ErrBusy is returned when a context already has a job running.
var ErrBusy = errors.New("execution context busy")

// LoadError reports that an engine instance could not be created.
type LoadError struct {
	Context int
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load engine context %d: %v", e.Context, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }

// StagingError reports that an input could not be written into a context.
type StagingError struct {
	Name string
	Err  error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.Name, e.Err)
}

func (e *StagingError) Unwrap() []error { return []error{services.ErrTransient, e.Err} }

// RunError reports that the engine failed to produce output for a job.
type RunError struct {
	Item string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %q: %v", e.Item, e.Err)
}

func (e *RunError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }
