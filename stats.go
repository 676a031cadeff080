package corepool

import "time"

// PoolStats is a snapshot of a Pool's (or StealingPool's) runtime state,
// taken under queue_lock. Unlike spec.md's other observability fields, every
// value here is consistent with every other value in the same snapshot.
type PoolStats struct {
	// ID is this pool's generated identifier (see Pool.ID).
	ID string

	// Workers is the fixed number of workers the pool was constructed with.
	Workers int

	// Queued is the number of tasks currently sitting in the shared queue,
	// i.e. spec.md §4.3's GetTaskCount().
	Queued int

	// WaitingWorkers is spec.md §3's waiting_count: the number of workers
	// currently blocked inside GetTask on task_available.
	WaitingWorkers int

	// Started reflects spec.md §3's started flag.
	Started bool

	// ShuttingDown reflects spec.md §3's shutting_down flag.
	ShuttingDown bool

	// StartTime is the clock reading recorded by the most recent
	// StartWorkers call that started a stopped pool; a call on an
	// already-started pool leaves it unchanged. Zero if StartWorkers has
	// never been called.
	StartTime time.Time

	// TotalWaitTime is the aggregate time workers have spent blocked on
	// task_available since StartTime, per spec.md §4.3's wait-time
	// accounting rules.
	TotalWaitTime time.Duration
}
