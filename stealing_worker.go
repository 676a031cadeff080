package corepool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

// stealingWorker is StealingPool's worker: spec.md §4.4's StealingWorker. It
// publishes the StealableTask it is currently running so sibling workers can
// steal from it, and after finishing its own task, repeatedly looks for a
// victim to steal from before going back to the shared queue.
type stealingWorker struct {
	id     int
	name   string
	pool   *StealingPool
	config Config
	ctx    context.Context

	// currentTask is published and cleared by this worker without holding
	// pool.stealMu, while sibling workers' steal scans read it with
	// pool.stealMu held (spec.md §9's documented benign race: a scan may
	// observe a task that has just finished Run), so it is an atomic
	// pointer rather than a lock-guarded field. Only its refCount, once
	// found, is mutated under pool.stealMu.
	currentTask atomic.Pointer[stealableHandle]
}

func newStealingWorker(id int, name string, pool *StealingPool, cfg Config) *stealingWorker {
	return &stealingWorker{
		id:     id,
		name:   name,
		pool:   pool,
		config: cfg,
		ctx:    withWorkerInfo(context.Background(), id, name),
	}
}

// run is the worker's main loop, implementing spec.md §4.4's six steps:
// dequeue, publish as current_task, run, clear current_task, steal
// repeatedly while the shared queue stays empty, and finalize once the
// reference count reaches zero.
func (w *stealingWorker) run() {
	w.config.Logger.Debug("stealing worker started", slog.Int("worker_id", w.id), slog.String("worker_name", w.name))

	for {
		task, ok := w.pool.core.getTask()
		if !ok {
			break
		}

		stealable, ok := task.(StealableTask)
		if !ok {
			// A plain Task submitted to a stealing pool carries no
			// stealing semantics: run it like a basic worker would.
			w.executePlain(task)
			continue
		}

		w.runStealable(stealable)
	}

	w.config.Logger.Debug("stealing worker stopped", slog.Int("worker_id", w.id), slog.String("worker_name", w.name))
}

func (w *stealingWorker) executePlain(task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.config.PanicHandler(w.id, r, debug.Stack())
		}
	}()
	defer task.Finalize()

	task.Run(w.ctx)
}

// runStealable carries a dequeued StealableTask through the full
// publish/run/clear/steal/finalize cycle.
func (w *stealingWorker) runStealable(task StealableTask) {
	handle := &stealableHandle{task: task, refCount: 1}

	if !w.currentTask.CompareAndSwap(nil, handle) {
		raiseInvariantViolation("current-task-not-nil", fmt.Sprintf("worker %d began a task while one was already published", w.id))
	}

	w.runRecovered(handle)

	// Cleared without holding stealMu: spec.md §9 permits the benign
	// race where a sibling reads a stale non-nil current_task and
	// attempts a steal against a task that is already finished.
	w.currentTask.Store(nil)

	w.stealUntilQueueNonEmpty(handle)

	w.pool.stealMu.Lock()
	handle.refCount--
	shouldFinalize := handle.refCount == 0
	w.pool.stealMu.Unlock()

	if shouldFinalize {
		handle.task.Finalize()
	}
}

func (w *stealingWorker) runRecovered(handle *stealableHandle) {
	defer func() {
		if r := recover(); r != nil {
			w.config.PanicHandler(w.id, r, debug.Stack())
		}
	}()
	handle.task.Run(w.ctx)
}

// stealUntilQueueNonEmpty repeatedly looks for a victim to steal from while
// the shared queue remains empty, per spec.md §4.4 step 5. It stops as soon
// as the shared queue has work again (so the worker goes back to
// getTask) or no worker currently has a task published.
func (w *stealingWorker) stealUntilQueueNonEmpty(self *stealableHandle) {
	for w.pool.core.taskCount() == 0 {
		victim := w.pool.acquireVictim(w.id, self)
		if victim == nil {
			return
		}

		w.stealFromRecovered(self, victim)

		w.pool.stealMu.Lock()
		victim.refCount--
		shouldFinalize := victim.refCount == 0
		w.pool.stealMu.Unlock()

		if shouldFinalize {
			victim.task.Finalize()
		}
	}
}

// stealFromRecovered calls self's StealFrom against victim with the same
// panic-recovery guarantee runRecovered gives Run: a misbehaving StealFrom
// must not take down the worker goroutine.
func (w *stealingWorker) stealFromRecovered(self, victim *stealableHandle) {
	defer func() {
		if r := recover(); r != nil {
			w.config.PanicHandler(w.id, r, debug.Stack())
		}
	}()
	self.task.StealFrom(w.ctx, victim.task)
}
