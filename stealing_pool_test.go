package corepool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// steppingTask owns a private chunk of divisible work (e.g. a mark-stack
// range): Run takes chunks from its own remaining until exhausted, and
// StealFrom takes one chunk directly from victim's remaining and processes
// it inline, matching original_source/src/thread_pool.cc's WorkStealingTask,
// where stealing performs the stolen portion of work itself rather than
// merely relocating it for a later Run. Every chunk taken, by either path,
// is added to the shared totalProcessed counter so the test can assert on
// the job's overall progress.
//
// If pauseAfterFirstChunk is non-nil, Run blocks there after taking its
// first chunk, giving a sibling worker a deterministic window to steal from
// it before it resumes.
type steppingTask struct {
	remaining            *atomic.Int64
	totalProcessed       *atomic.Int64
	chunk                int64
	pauseAfterFirstChunk chan struct{}

	runCount      atomic.Int32
	stealFromHits atomic.Int32
	finalizeCount atomic.Int32
}

func (t *steppingTask) takeChunk() int64 {
	for {
		cur := t.remaining.Load()
		if cur <= 0 {
			return 0
		}
		n := t.chunk
		if n > cur {
			n = cur
		}
		if t.remaining.CompareAndSwap(cur, cur-n) {
			return n
		}
	}
}

func (t *steppingTask) Run(ctx context.Context) {
	t.runCount.Add(1)

	if n := t.takeChunk(); n > 0 {
		t.totalProcessed.Add(n)
	}
	if t.pauseAfterFirstChunk != nil {
		<-t.pauseAfterFirstChunk
	}
	for {
		n := t.takeChunk()
		if n == 0 {
			return
		}
		t.totalProcessed.Add(n)
	}
}

func (t *steppingTask) StealFrom(ctx context.Context, victim StealableTask) {
	t.stealFromHits.Add(1)
	if n := victim.(*steppingTask).takeChunk(); n > 0 {
		t.totalProcessed.Add(n)
	}
}

func (t *steppingTask) Finalize() { t.finalizeCount.Add(1) }

func TestNewStealingPool_InvalidConfig(t *testing.T) {
	if _, err := NewStealingPool(-1); err == nil {
		t.Error("expected an error for a negative worker count")
	}
}

func TestStealingPool_StealsFromAPausedSibling(t *testing.T) {
	pool, err := NewStealingPool(2)
	if err != nil {
		t.Fatalf("NewStealingPool() error = %v", err)
	}
	defer pool.Close()
	pool.StartWorkers()

	var totalProcessed atomic.Int64
	victimRemaining := &atomic.Int64{}
	victimRemaining.Store(1000)
	victim := &steppingTask{
		remaining:            victimRemaining,
		totalProcessed:       &totalProcessed,
		chunk:                10,
		pauseAfterFirstChunk: make(chan struct{}),
	}
	thief := &steppingTask{
		remaining:      &atomic.Int64{}, // starts with no work of its own
		totalProcessed: &totalProcessed,
		chunk:          10,
	}

	pool.AddTask(victim)
	pool.AddTask(thief)

	// Give the thief's worker ample time to finish its own (empty) Run and
	// repeatedly steal from the victim while the victim stays published.
	time.Sleep(20 * time.Millisecond)
	close(victim.pauseAfterFirstChunk)

	if err := pool.Wait(context.Background(), false); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if totalProcessed.Load() != 1000 {
		t.Errorf("expected all 1000 units of work to be processed exactly once, got %d", totalProcessed.Load())
	}
	if victimRemaining.Load() != 0 {
		t.Errorf("expected the victim's remaining work to reach 0, got %d", victimRemaining.Load())
	}
	if thief.stealFromHits.Load() == 0 {
		t.Error("expected the thief to have stolen from the victim at least once")
	}
	if victim.finalizeCount.Load() != 1 || thief.finalizeCount.Load() != 1 {
		t.Errorf("expected each task finalized exactly once, got victim=%d thief=%d",
			victim.finalizeCount.Load(), thief.finalizeCount.Load())
	}
}

func TestStealingPool_PlainTaskRunsWithoutStealingMachinery(t *testing.T) {
	pool, err := NewStealingPool(2)
	if err != nil {
		t.Fatalf("NewStealingPool() error = %v", err)
	}
	defer pool.Close()
	pool.StartWorkers()

	task := &fakeTask{}
	pool.AddTask(task)

	if err := pool.Wait(context.Background(), false); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if task.runCount.Load() != 1 {
		t.Errorf("expected a plain Task to run exactly once, got %d", task.runCount.Load())
	}
	if task.finalizeCount.Load() != 1 {
		t.Errorf("expected a plain Task to finalize exactly once, got %d", task.finalizeCount.Load())
	}
}

// stealFromPanicTask finishes Run immediately (so it becomes a thief looking
// for a victim) and panics on its first StealFrom call only, exercising
// panic recovery inside the stealing loop rather than the plain worker loop
// without spinning on an ever-panicking StealFrom for the rest of the test.
type stealFromPanicTask struct {
	panicked      atomic.Bool
	finalizeCount atomic.Int32
}

func (t *stealFromPanicTask) Run(ctx context.Context) {}
func (t *stealFromPanicTask) StealFrom(ctx context.Context, v StealableTask) {
	if t.panicked.CompareAndSwap(false, true) {
		panic("steal-from panic")
	}
}
func (t *stealFromPanicTask) Finalize() { t.finalizeCount.Add(1) }

// slowVictimTask stays published long enough for a sibling to attempt a
// steal against it.
type slowVictimTask struct {
	release       chan struct{}
	finalizeCount atomic.Int32
}

func (t *slowVictimTask) Run(ctx context.Context)                     { <-t.release }
func (t *slowVictimTask) StealFrom(ctx context.Context, v StealableTask) {}
func (t *slowVictimTask) Finalize()                                    { t.finalizeCount.Add(1) }

func TestStealingPool_PanicInStealFromIsRecovered(t *testing.T) {
	var caught any
	pool, err := NewStealingPool(2, WithPanicHandler(func(workerID int, r any, stack []byte) {
		caught = r
	}))
	if err != nil {
		t.Fatalf("NewStealingPool() error = %v", err)
	}
	defer pool.Close()
	pool.StartWorkers()

	victim := &slowVictimTask{release: make(chan struct{})}
	thief := &stealFromPanicTask{}
	pool.AddTask(victim)
	pool.AddTask(thief)

	// Give the thief a chance to finish Run and attempt (and panic inside)
	// a steal against the still-running victim.
	time.Sleep(20 * time.Millisecond)
	close(victim.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Wait(ctx, false); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if caught != "steal-from panic" {
		t.Errorf("expected panic handler to observe %q, got %v", "steal-from panic", caught)
	}
	if thief.finalizeCount.Load() != 1 {
		t.Errorf("expected the thief to still finalize exactly once, got %d", thief.finalizeCount.Load())
	}
	if victim.finalizeCount.Load() != 1 {
		t.Errorf("expected the victim to still finalize exactly once, got %d", victim.finalizeCount.Load())
	}
}

// ============================================================================
// White-box tests of the steal-victim scan
// ============================================================================

func TestFindTaskToStealFromLocked_SkipsSelf(t *testing.T) {
	pool, err := NewStealingPool(3)
	if err != nil {
		t.Fatalf("NewStealingPool() error = %v", err)
	}
	// Workers never started, so they stay blocked in getTask and never
	// touch currentTask themselves; safe to poke it directly under test.
	defer pool.Close()

	handleA := &stealableHandle{task: &steppingTask{remaining: &atomic.Int64{}, totalProcessed: &atomic.Int64{}, chunk: 1}}
	handleC := &stealableHandle{task: &steppingTask{remaining: &atomic.Int64{}, totalProcessed: &atomic.Int64{}, chunk: 1}}

	pool.workers[0].currentTask.Store(handleA)
	pool.workers[2].currentTask.Store(handleC)

	pool.stealMu.Lock()
	found := pool.findTaskToStealFromLocked(1)
	pool.stealMu.Unlock()

	if found != handleA && found != handleC {
		t.Fatalf("expected to find worker 0 or 2's published task, got %v", found)
	}

	pool.workers[0].currentTask.Store(nil)
	pool.workers[2].currentTask.Store(nil)
}

func TestFindTaskToStealFromLocked_NoneWhenAllIdle(t *testing.T) {
	pool, err := NewStealingPool(3)
	if err != nil {
		t.Fatalf("NewStealingPool() error = %v", err)
	}
	defer pool.Close()

	pool.stealMu.Lock()
	found := pool.findTaskToStealFromLocked(0)
	pool.stealMu.Unlock()

	if found != nil {
		t.Errorf("expected no victim when nothing is published, got %v", found)
	}
}
