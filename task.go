package corepool

import "context"

// Task is a caller-supplied unit of work. Run executes the work synchronously
// on whichever worker dequeues it; Finalize releases any resources the task
// holds and is guaranteed to run exactly once, after Run (and, for a
// StealableTask, after every StealFrom call that referenced it) has returned.
//
// Neither method may assume a particular worker identity, and Finalize must
// not submit new tasks to the pool that owns it.
type Task interface {
	// Run performs the work. It is called with no pool lock held.
	Run(ctx context.Context)

	// Finalize is called exactly once, after the task will never be touched
	// again by any worker.
	Finalize()
}

// StealableTask is a Task whose not-yet-finished work can be partially
// transferred to another worker. StealFrom is called on the stealing task
// (self), with victim as the source of work; it returns once it has taken
// whatever portion of victim's remaining work it is able to take.
//
// Implementations are responsible for their own internal synchronization
// between Run and StealFrom: the pool guarantees StealFrom is only invoked
// while victim is reachable (its reference count is at least 1) but does not
// serialize StealFrom against a concurrently-running Run.
type StealableTask interface {
	Task

	// StealFrom transfers some portion of victim's remaining work into self.
	// It is called with no pool lock held.
	StealFrom(ctx context.Context, victim StealableTask)
}

// TaskFunc adapts a plain function to the Task interface for callers with no
// need for a Finalize step. Finalize is a no-op.
type TaskFunc func(ctx context.Context)

// Run invokes the underlying function.
func (f TaskFunc) Run(ctx context.Context) { f(ctx) }

// Finalize does nothing.
func (f TaskFunc) Finalize() {}
