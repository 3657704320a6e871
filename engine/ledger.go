package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrMemoryExceeded is raised when a job's budget cannot grow any further
// under the pool cap. It terminates the job cleanly: no requeue.
var ErrMemoryExceeded = errors.New("xpool: job exceeded the memory cap")

// ErrTimeExceeded is raised when a job's wall-clock allowance has elapsed by
// the time it next touches its Budget. It terminates the job cleanly: no requeue.
var ErrTimeExceeded = errors.New("xpool: job exceeded its time cap")

// terminationRequest is the allocator's internal signal that a job should
// give up its reservation so the pool can make progress elsewhere. Per the
// allocator's contract, this is a normal value to the worker loop, never a
// distinct case user code is expected to handle — job code simply returns
// whatever error Grow gives it, same as for the two exported sentinels.
//
// lock is held by whichever Budget.Grow call raised this request; the
// worker loop releases it once it has finished the requeue-or-give-up
// decision (spec 4.G step 6: "Finalize; release the termination lock").
type terminationRequest struct {
	neededBytes int64
	lock        *sync.Mutex
}

func (t *terminationRequest) Error() string {
	return "xpool: termination requested"
}

// Budget is the tracking-allocator handle (component C) passed to every job
// callable. Go cannot intercept runtime.mallocgc from library code the way
// a systems-language allocator intercepts every collection's allocator, so
// every collaborator that grows a collection during a job routes that
// growth through Grow/Shrink instead of appending directly — see
// DESIGN.md's Open Question on allocator interception.
type Budget struct {
	acc      *MemoryAccountant
	wa       *WorkerAccountant
	termLock *sync.Mutex
}

func newBudget(acc *MemoryAccountant, wa *WorkerAccountant, termLock *sync.Mutex) *Budget {
	return &Budget{acc: acc, wa: wa, termLock: termLock}
}

// Grow accounts for n additional bytes the caller is about to allocate. It
// returns nil on success (the allocation may proceed), one of the two
// exported sentinel errors on a clean abort, or an internal termination
// request the worker loop alone interprets.
func (b *Budget) Grow(n int64) error {
	b.wa.Check()
	if n < 0 {
		n = 0
	}

	// 1. Fail-fast time check.
	if !b.acc.HasTime(b.wa) {
		return ErrTimeExceeded
	}

	// 2. Budget check: already flagged, or this allocation alone can never fit.
	if b.wa.memoutFlagged || maxInt64(b.wa.reserved, b.wa.allocated+n) > b.acc.capBytes {
		b.wa.memoutFlagged = true
		return ErrMemoryExceeded
	}

	// 3. Extra-reservation need.
	d := (b.wa.allocated + n) - b.wa.reserved
	if d < 0 {
		d = 0
	}

	if d > 0 {
		reserved := false
		for i := 0; i < reserveRetryLimit; i++ {
			if b.acc.TryReserve(d) {
				reserved = true
				break
			}
			if b.termLock.TryLock() {
				return &terminationRequest{neededBytes: b.wa.allocated + n, lock: b.termLock}
			}
			time.Sleep(time.Duration(rand.Int63n(int64(reserveRetrySleep))))
		}
		if !reserved {
			// Bounded spinning failed to make progress and never won the
			// termination lock either; fall back to a blocking acquire so
			// the pool still makes progress (spec 5: "the engine cannot
			// deadlock because all locks are leaf locks held for bounded
			// regions" — this is that guarantee's last resort).
			b.termLock.Lock()
			return &terminationRequest{neededBytes: b.wa.allocated + n, lock: b.termLock}
		}
		b.wa.reserved += d
	}

	// 5. Reservation satisfied (possibly d == 0): perform the accounting
	// for the underlying allocation.
	b.wa.allocated += n
	if b.wa.allocated > b.wa.peak {
		b.wa.peak = b.wa.allocated
	}
	b.wa.allocCount++
	return nil
}

// Shrink accounts for n bytes the caller has just released.
func (b *Budget) Shrink(n int64) {
	b.wa.Check()
	if n <= 0 {
		return
	}
	prevA := b.wa.allocated
	b.wa.allocated -= n
	if b.wa.allocated < 0 {
		b.wa.allocated = 0
	}

	notNeeded := prevA - b.wa.reserved
	if notNeeded > n {
		notNeeded = n
	}
	if notNeeded < 0 {
		notNeeded = 0
	}
	if notNeeded > 0 {
		b.acc.Unreserve(notNeeded)
		b.wa.reserved -= notNeeded
	}
}

// Peak returns the highest allocated-bytes value observed so far in the
// current attempt, used by the worker loop to compute the requeue estimate
// (invariant I3).
func (b *Budget) Peak() int64 {
	b.wa.Check()
	return b.wa.peak
}
