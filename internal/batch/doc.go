// Package batch schedules practice-track jobs across a pool of engine
// contexts.
//
// A Coordinator owns one batch from submission to teardown. It sizes the
// pool with PoolSize, loads every engine context concurrently, and starts
// one worker per context. Workers drain a shared JobQueue and report
// progress, results, and failures as events on a single channel that the
// coordinator folds into a ProgressAggregator and a ResultCollector.
// Teardown terminates every context on every exit path; results are
// delivered in submission order.
//
// Per-item failures (staging or engine errors) never stop a worker or the
// batch. Only pool construction failure, invalid input, or cancellation of
// the batch context end a batch in StateFailed.
package batch
