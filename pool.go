package corepool

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Pool is a fixed-size group of worker goroutines draining one shared FIFO
// queue, per spec.md §3/§4.3. Construction starts every worker immediately;
// StartWorkers/StopWorkers gate whether they are allowed to dequeue, and
// Close tears the pool down permanently.
//
// Grounded on Tahsin716-flock/pool.go's NewPool/Shutdown/Wait/Stats shape,
// rebuilt around a mutex+condition-variable core instead of the teacher's
// lock-free MPSC queues, since spec.md's GetTask/Wait/quiescence contract is
// defined in terms of a single queue_lock and two condition variables.
type Pool struct {
	core    *poolCore
	workers []*worker

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool constructs a Pool with numWorkers workers and starts their
// goroutines immediately. Workers block in GetTask until StartWorkers is
// called; they do not begin dequeuing tasks before that.
func NewPool(numWorkers int, opts ...Option) (*Pool, error) {
	cfg := buildConfig(opts)
	if err := cfg.validate(numWorkers); err != nil {
		return nil, err
	}

	p := &Pool{
		core:    newPoolCore(numWorkers, cfg),
		workers: make([]*worker, numWorkers),
	}

	for i := 0; i < numWorkers; i++ {
		p.workers[i] = newWorker(i, cfg.workerName("Thread pool worker", i), p.core, cfg)
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run()
		}(w)
	}

	return p, nil
}

// ID returns this pool's generated identifier, stable for its lifetime.
func (p *Pool) ID() string { return p.core.id }

// AddTask appends task to the shared queue. Per spec.md §4.3, calling
// AddTask after shutdown has begun is a caller contract violation that this
// method does not detect: the task is queued but will never run.
func (p *Pool) AddTask(task Task) { p.core.addTask(task) }

// StartWorkers allows every worker to begin (or resume) dequeuing tasks.
// Idempotent.
func (p *Pool) StartWorkers() { p.core.startWorkers() }

// StopWorkers prevents workers from dequeuing further tasks without ending
// their goroutines. A worker already running a task finishes it first.
func (p *Pool) StopWorkers() { p.core.stopWorkers() }

// GetTaskCount returns the number of tasks currently queued.
func (p *Pool) GetTaskCount() int { return p.core.taskCount() }

// Stats returns a point-in-time snapshot of the pool's state.
func (p *Pool) Stats() PoolStats { return p.core.snapshot() }

// Wait blocks until the pool is quiescent (every worker waiting, queue
// empty) or has been shut down. If doWork is true, the calling goroutine
// first drains the queue itself, running and finalizing each task inline,
// exactly as spec.md §4.3 describes for Wait(do_work=true). The drain only
// takes tasks while the pool is started: after StopWorkers it takes none,
// and Wait just blocks.
//
// ctx is an idiomatic addition with no analogue in spec.md: if ctx is
// canceled while Wait is blocked, Wait returns ctx.Err() instead of blocking
// forever.
func (p *Pool) Wait(ctx context.Context, doWork bool) error {
	if doWork {
		for {
			task, ok := p.core.tryGetTask()
			if !ok {
				break
			}
			p.runInline(ctx, task)
		}
	}
	return p.core.waitQuiescent(ctx)
}

// runInline executes a task drained by Wait(do_work=true) directly on the
// caller's goroutine. The task was never published to any worker, so it is
// run and finalized without any steal-related bookkeeping.
func (p *Pool) runInline(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.core.config.PanicHandler(-1, r, debug.Stack())
		}
	}()
	defer task.Finalize()

	task.Run(ctx)
}

// Close shuts the pool down permanently: no further task will be dequeued,
// every worker goroutine is joined, and any task left in the queue is
// finalized without being run (the discard-and-finalize policy documented in
// SPEC_FULL.md). Close is idempotent and safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.core.beginShutdown()
		p.wg.Wait()

		remaining := p.core.drainRemaining()
		if len(remaining) > 0 {
			p.core.config.Logger.Debug("discarding queued tasks at shutdown", slog.Int("count", len(remaining)))
		}
		for _, t := range remaining {
			t.Finalize()
		}
	})
	return nil
}
