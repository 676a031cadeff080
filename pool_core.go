package corepool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// poolCore holds the fields spec.md §3 assigns to `Pool`: the shared queue,
// the lifecycle flags, and the two condition variables, all guarded by one
// mutex (`queue_lock`). Both Pool and StealingPool embed a *poolCore rather
// than one inheriting from the other, per spec.md §9's guidance to express
// the Pool/StealingPool relationship as composition, not inheritance; the
// worker slice, which differs in element type between the two, lives on the
// owning type instead of here.
type poolCore struct {
	id     string
	config Config

	mu            sync.Mutex
	taskAvailable *sync.Cond // signaled when a task is enqueued or a lifecycle flag changes
	quiescence    *sync.Cond // signaled when the pool becomes idle

	queue       *taskQueue
	workerCount int

	started       bool
	shuttingDown  bool
	waitingCount  int
	startTime     time.Time
	totalWaitTime time.Duration
}

func newPoolCore(workerCount int, cfg Config) *poolCore {
	c := &poolCore{
		id:          uuid.NewString(),
		config:      cfg,
		queue:       newTaskQueue(),
		workerCount: workerCount,
	}
	c.taskAvailable = sync.NewCond(&c.mu)
	c.quiescence = sync.NewCond(&c.mu)
	return c
}

// addTask implements spec.md §4.3 AddTask: append to the tail, and signal one
// waiter if any worker is currently blocked in getTask. Passing a nil task is
// a caller bug, not a transient condition, so it is fatal rather than a
// silently-ignored no-op.
func (c *poolCore) addTask(t Task) {
	if t == nil {
		raiseInvariantViolation("nil-task", "AddTask called with a nil Task")
	}

	c.mu.Lock()
	c.queue.pushBack(t)
	if c.waitingCount > 0 {
		c.taskAvailable.Signal()
	}
	c.mu.Unlock()
}

// startWorkers implements spec.md §4.3 StartWorkers. It is idempotent: calling
// it again while already started re-broadcasts (harmless) without disturbing
// start_time or total_wait_time, satisfying spec.md §8 property 6.
func (c *poolCore) startWorkers() {
	c.mu.Lock()
	if !c.started {
		c.started = true
		c.startTime = c.config.Clock.Now()
		c.totalWaitTime = 0
	}
	c.taskAvailable.Broadcast()
	c.mu.Unlock()
}

// stopWorkers implements spec.md §4.3 StopWorkers: pause dispatch without
// tearing the pool down. Workers already executing a task finish it; workers
// blocked in getTask keep waiting until StartWorkers or shutdown.
func (c *poolCore) stopWorkers() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
}

// getTask implements spec.md §4.3 GetTask's blocking loop, including the
// wait-time accounting rules: a wait interval that began before start_time is
// clipped to start at start_time.
func (c *poolCore) getTask() (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.shuttingDown {
			return nil, false
		}

		if c.started {
			if t, ok := c.queue.popFront(); ok {
				return t, true
			}
		}

		c.waitingCount++
		if c.waitingCount == c.workerCount && c.queue.isEmpty() {
			c.quiescence.Broadcast()
		}

		waitStart := c.config.Clock.Now()
		c.taskAvailable.Wait() // atomically releases c.mu, re-acquires on wake
		waitEnd := c.config.Clock.Now()

		clippedStart := waitStart
		if c.startTime.After(clippedStart) {
			clippedStart = c.startTime
		}
		if waitEnd.After(clippedStart) {
			c.totalWaitTime += waitEnd.Sub(clippedStart)
		}

		c.waitingCount--
	}
}

// tryGetTask implements spec.md §4.3 TryGetTask: the non-blocking variant
// used by Wait's do_work drain path.
func (c *poolCore) tryGetTask() (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil, false
	}
	return c.queue.popFront()
}

func (c *poolCore) taskCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.len()
}

// waitQuiescent implements the second half of spec.md §4.3 Wait: block on
// quiescence until shutdown or until every worker is waiting with an empty
// queue. ctx is honored as an idiomatic Go addition (spec.md's Wait has no
// analogous cancellation): a goroutine rebroadcasts quiescence when ctx is
// done so the waiter can re-check and return ctx.Err().
func (c *poolCore) waitQuiescent(ctx context.Context) error {
	if ctx != nil && ctx.Done() != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				c.mu.Lock()
				c.quiescence.Broadcast()
				c.mu.Unlock()
			case <-stop:
			}
		}()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.shuttingDown && !(c.waitingCount == c.workerCount && c.queue.isEmpty()) {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		c.quiescence.Wait()
	}
	return nil
}

// beginShutdown implements the locked portion of spec.md §4.3's destructor:
// mark shutting_down and wake every waiter on both condition variables.
func (c *poolCore) beginShutdown() {
	c.mu.Lock()
	c.shuttingDown = true
	c.taskAvailable.Broadcast()
	c.quiescence.Broadcast()
	c.mu.Unlock()
}

// drainRemaining removes and returns every task still queued. Called after
// every worker has been joined, as part of the discard-and-finalize
// destruction policy documented in SPEC_FULL.md (resolving spec.md §9's
// queue-at-destruction Open Question).
func (c *poolCore) drainRemaining() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.drain()
}

func (c *poolCore) snapshot() PoolStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PoolStats{
		ID:             c.id,
		Workers:        c.workerCount,
		Queued:         c.queue.len(),
		WaitingWorkers: c.waitingCount,
		Started:        c.started,
		ShuttingDown:   c.shuttingDown,
		StartTime:      c.startTime,
		TotalWaitTime:  c.totalWaitTime,
	}
}
