package engine

import (
	"sync"
	"time"

	"github.com/cnfsuite/xpool/common"
)

// UntrackedWorkerID marks "not yet registered" (component A). Every worker
// registers itself eagerly at the top of its loop (step 1 of the worker
// loop), so in practice no allocation ever observes an UNTRACKED id; the
// constant exists so the zero value of a WorkerAccountant is recognizably
// invalid rather than looking like worker 0.
const UntrackedWorkerID int32 = 0

// WorkerAccountant is the per-thread accountant: allocated bytes A,
// reserved bytes R, peak-for-current-job P, allocation count N, job-start
// T0, and the memory-out flag. It has a single owning worker; only that
// worker's goroutine ever mutates these fields (the registry's list below
// exists purely for best-effort supervisor snapshots).
type WorkerAccountant struct {
	common.NoCopy

	id            int32
	allocated     int64
	reserved      int64
	peak          int64
	allocCount    int64
	jobStart      time.Time
	memoutFlagged bool
}

func (wa *WorkerAccountant) ID() int32 {
	wa.Check()
	return wa.id
}

// reset zeros P, N, and the memout flag between jobs. R is released and
// both R and A are zeroed separately by the worker loop's finalize step.
func (wa *WorkerAccountant) reset() {
	wa.Check()
	wa.peak = 0
	wa.allocCount = 0
	wa.memoutFlagged = false
}

// Registry maintains the per-worker accountant table (component A). It
// assigns each worker a dense, process-unique id on first use and keeps a
// mutex-guarded list of every live accountant so a supervisor can snapshot
// pool-wide allocation.
type Registry struct {
	mu      sync.Mutex
	workers []*WorkerAccountant
	acc     *MemoryAccountant
}

func NewRegistry(acc *MemoryAccountant) *Registry {
	return &Registry{acc: acc}
}

// Register installs a fresh WorkerAccountant and returns it. Called once by
// each worker goroutine at startup.
func (r *Registry) Register() *WorkerAccountant {
	wa := &WorkerAccountant{id: r.acc.nextWorkerID()}
	r.mu.Lock()
	r.workers = append(r.workers, wa)
	r.mu.Unlock()
	return wa
}

// Snapshot sums every registered worker's currently-allocated bytes. Reads
// are unsynchronized with respect to the owning workers' writes (the spec
// tolerates torn reads for this best-effort total), so the result is an
// approximation, not a consistent point-in-time total.
func (r *Registry) Snapshot() (totalAllocated int64, workerCount int) {
	r.mu.Lock()
	ws := r.workers
	r.mu.Unlock()

	for _, wa := range ws {
		totalAllocated += wa.allocated
	}
	return totalAllocated, len(ws)
}
