package engine

import (
	"sync"

	"github.com/cnfsuite/xpool/common"
)

// jobQueue is the pending-jobs FIFO (component E): a mutex-guarded
// common.LinkedList with a non-blocking TryPop. A requeued job goes to the
// tail like any fresh submission, matching the spec's "requeued job goes to
// the tail" ordering rule.
type jobQueue struct {
	mu   sync.Mutex
	list common.LinkedList[*job]
}

func newJobQueue() *jobQueue {
	return &jobQueue{}
}

func (q *jobQueue) Push(j *job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.Insert(j)
}

// TryPop removes and returns the oldest job, or (nil, false) if empty.
func (q *jobQueue) TryPop() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.list.Len() == 0 {
		return nil, false
	}
	j := q.list.Back()
	q.list.PopRear()
	return j, true
}

func (q *jobQueue) Len() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}

// resultQueue is the completed/failed-job FIFO (component F).
type resultQueue struct {
	mu   sync.Mutex
	list common.LinkedList[Outcome]
}

func newResultQueue() *resultQueue {
	return &resultQueue{}
}

func (q *resultQueue) Push(o Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.Insert(o)
}

// TryPop removes and returns the oldest result, or (Outcome{}, false) if empty.
func (q *resultQueue) TryPop() (Outcome, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.list.Len() == 0 {
		return Outcome{}, false
	}
	o := q.list.Back()
	q.list.PopRear()
	return o, true
}

func (q *resultQueue) Len() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}
