package corepool

// taskQueue is the ordered sequence of Task referred to by spec.md §3 as
// `queue`: FIFO, enqueue at tail, dequeue at head. It is not safe for
// concurrent use on its own — every caller holds poolCore.mu — so unlike
// Tahsin716-flock's lock-free queues (grounded on a different, non-goal
// design; see DESIGN.md) this type carries no synchronization of its own.
//
// The slice-trimming and periodic-compaction approach is grounded on
// Swind-go-task-runner/core/queue.go's FIFOTaskQueue, adapted from TaskItem
// closures to the Task interface.
type taskQueue struct {
	tasks []Task
}

const (
	queueDefaultCap    = 16
	queueCompactMinCap = 64
	queueShrinkFactor  = 4
)

func newTaskQueue() *taskQueue {
	return &taskQueue{tasks: make([]Task, 0, queueDefaultCap)}
}

// pushBack appends a task to the tail of the queue.
func (q *taskQueue) pushBack(t Task) {
	q.tasks = append(q.tasks, t)
}

// popFront removes and returns the task at the head of the queue, if any.
func (q *taskQueue) popFront() (Task, bool) {
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks[0] = nil // avoid retaining a reference to a finalized task
	q.tasks = q.tasks[1:]
	q.maybeCompact()
	return t, true
}

// drain removes and returns every task currently queued, in FIFO order.
func (q *taskQueue) drain() []Task {
	if len(q.tasks) == 0 {
		return nil
	}
	drained := q.tasks
	q.tasks = make([]Task, 0, queueDefaultCap)
	return drained
}

func (q *taskQueue) len() int {
	return len(q.tasks)
}

func (q *taskQueue) isEmpty() bool {
	return len(q.tasks) == 0
}

// maybeCompact reallocates the backing array once it has shrunk well below
// its capacity, so a pool that briefly queues a large burst of tasks does not
// hold onto that capacity forever.
func (q *taskQueue) maybeCompact() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < queueCompactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]Task, 0, queueDefaultCap)
		return
	}
	if n*queueShrinkFactor >= c {
		return
	}

	newCap := c / 2
	if newCap < queueDefaultCap {
		newCap = queueDefaultCap
	}
	if newCap < n {
		newCap = n
	}

	shrunk := make([]Task, n, newCap)
	copy(shrunk, q.tasks)
	q.tasks = shrunk
}
