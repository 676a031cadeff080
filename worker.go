package corepool

import (
	"context"
	"log/slog"
	"runtime/debug"
)

// worker is a Pool's plain, non-stealing worker: spec.md §4.2's Worker. Each
// worker owns one goroutine for its whole lifetime and repeatedly calls
// getTask on the shared core until told to stop.
type worker struct {
	id     int
	name   string
	core   *poolCore
	config Config
	ctx    context.Context
}

func newWorker(id int, name string, core *poolCore, cfg Config) *worker {
	return &worker{
		id:     id,
		name:   name,
		core:   core,
		config: cfg,
		ctx:    withWorkerInfo(context.Background(), id, name),
	}
}

// run is the worker's main loop: fetch a task, run it to completion, finalize
// it, repeat until getTask reports shutdown. Grounded on
// Tahsin716-flock/worker.go's run, stripped of the MPSC/Chase-Lev-deque
// machinery that belongs to the teacher's (non-goal) stealing design.
func (w *worker) run() {
	w.config.Logger.Debug("worker started", slog.Int("worker_id", w.id), slog.String("worker_name", w.name))

	for {
		task, ok := w.core.getTask()
		if !ok {
			break
		}
		w.execute(task)
	}

	w.config.Logger.Debug("worker stopped", slog.Int("worker_id", w.id), slog.String("worker_name", w.name))
}

// execute runs a task and finalizes it exactly once, recovering any panic
// from Run through the configured PanicHandler. Finalize runs even if Run
// panicked: it is deferred before the recover, so it executes while the
// panic is still unwinding.
func (w *worker) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.config.PanicHandler(w.id, r, debug.Stack())
		}
	}()
	defer task.Finalize()

	task.Run(w.ctx)
}
