// Package corepool provides two worker-pool primitives built around one
// shared FIFO task queue: Pool, a fixed-size group of workers that drain the
// queue directly, and StealingPool, whose workers additionally steal
// unfinished work from one another when the queue runs dry.
//
// Both are modeled on a single-process, single-queue thread pool: there is
// no priority scheduling, no per-task return value or future, and no
// dynamic resizing. A pool's worker count is fixed for its lifetime.
//
// # Quick Start
//
// A Pool runs plain Task values:
//
//	pool, err := corepool.NewPool(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	pool.StartWorkers()
//	for i := 0; i < 100; i++ {
//	    i := i
//	    pool.AddTask(corepool.TaskFunc(func(ctx context.Context) {
//	        fmt.Printf("task %d running\n", i)
//	    }))
//	}
//	pool.Wait(context.Background(), false)
//
// # Work Stealing
//
// A StealingPool runs StealableTask values, whose StealFrom method transfers
// a portion of another worker's remaining work onto the calling worker once
// the shared queue is empty:
//
//	pool, err := corepool.NewStealingPool(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	pool.StartWorkers()
//	pool.AddTask(myStealableTask)
//	pool.Wait(context.Background(), false)
//
// A plain Task submitted to a StealingPool runs to completion without
// participating in stealing; only values also implementing StealableTask are
// published for sibling workers to steal from.
//
// # Configuration
//
// Both constructors accept functional options:
//
//	pool, err := corepool.NewPool(8,
//	    corepool.WithLogger(myLogger),
//	    corepool.WithPanicHandler(myHandler),
//	    corepool.WithClock(myClock),
//	)
//
// WithClock is primarily useful in tests: pass a *timeutil.SimulatedClock to
// assert on Stats().TotalWaitTime without relying on wall-clock sleeps.
//
// # Lifecycle
//
// StartWorkers and StopWorkers toggle whether workers are allowed to dequeue
// tasks, without ending their goroutines; both are idempotent. Close shuts a
// pool down permanently: it joins every worker goroutine and finalizes
// (without running) any task still queued at that point. A pool cannot be
// restarted after Close.
//
// # Error Handling
//
// A panic inside Task.Run or StealableTask.StealFrom is always recovered
// before it can take down a worker goroutine; the recovered value and a
// stack trace are passed to the pool's PanicHandler (logged through Logger
// by default). A detected concurrency invariant violation — for example a
// worker selecting itself as a steal victim — is not recoverable: it panics
// with an *InvariantViolation describing the failed check.
//
// # Observability
//
// Stats returns a consistent snapshot of a pool's queue depth, worker count,
// waiting-worker count, lifecycle flags, and aggregate wait time:
//
//	stats := pool.Stats()
//	fmt.Printf("queued=%d waiting=%d total_wait=%v\n",
//	    stats.Queued, stats.WaitingWorkers, stats.TotalWaitTime)
package corepool
