// Package engine wraps a transcoding engine behind execution contexts.
//
// An Engine loads isolated Handles. Context binds one Handle to the batch
// scheduler: it tracks the idle/staging/running/terminated lifecycle, turns
// engine failures into typed errors, clamps run progress to a monotonic
// 0..100 stream, and makes Terminate idempotent and safe mid-run.
package engine
