package corepool

// stealableHandle is the ref-counted wrapper spec.md §3/§4.4 implicitly
// describes around a StealableTask published as a worker's current_task:
// refCount starts at 1 for the owning worker and gains one more for every
// in-flight StealFrom call against it. Finalize runs exactly once, when
// refCount drops to zero. refCount is always read and mutated under
// StealingPool.stealMu, never under poolCore.mu; a sibling may change it while
// the task's Run is still executing, but stealMu is never held while user code
// runs — spec.md §6's rule that no user code runs under either lock.
type stealableHandle struct {
	task     StealableTask
	refCount int
}
