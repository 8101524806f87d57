package negotiation

import "sync"

// taskQueue is an unbounded FIFO of session steps. Push never blocks, so the
// coordinator's event loop is never held up by a slow peer.
type taskQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	tasks    []func()
	closed   bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends task. It reports false once the queue is closed.
func (q *taskQueue) Push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)
	q.notEmpty.Signal()
	return true
}

// Pop blocks until a task is available. It returns false once the queue is
// closed; tasks still queued at that point are dropped.
func (q *taskQueue) Pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.closed {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

func (q *taskQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.tasks = nil
	q.notEmpty.Broadcast()
	q.mu.Unlock()
}
