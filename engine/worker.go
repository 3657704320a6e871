package engine

import (
	"time"

	"github.com/pkg/errors"
)

// runWorker is a single worker's entire lifetime (component G). It
// registers an accountant, then loops pulling jobs until the pool is shut
// down; it never takes a job once shuttingDown is observed, but it always
// finishes whatever job it is currently running.
func (p *Pool) runWorker() {
	wa := p.reg.Register()

	for {
		if p.shuttingDown.Load() {
			return
		}

		j, ok := p.pending.TryPop()
		if !ok {
			time.Sleep(workerIdleSleep)
			continue
		}

		p.runJob(wa, j)
	}
}

// waitForStart reserves j's current memory estimate before the job runs,
// flagging the accountant for an immediate memory-out if the estimate can
// never fit under the cap.
func (p *Pool) waitForStart(wa *WorkerAccountant, j *job) {
	need := j.memnbt
	if !p.acc.CanFit(need) {
		wa.memoutFlagged = true
		return
	}
	for !p.acc.TryReserve(need) {
		time.Sleep(reserveRetrySleep)
	}
	wa.reserved = need
}

func (p *Pool) runJob(wa *WorkerAccountant, j *job) {
	p.waitForStart(wa, j)
	wa.jobStart = time.Now()

	budget := newBudget(p.acc, wa, &p.termLock)
	result, err := j.fn(p.ctx, j.args, budget)

	switch {
	case err == nil:
		p.finalize(wa)
		p.results.Push(Outcome{Key: j.key, Result: result, Status: EStatus.Success()})

	case errors.Is(err, ErrMemoryExceeded):
		p.finalize(wa)
		p.results.Push(Outcome{Key: j.key, Result: Result{}, Status: EStatus.Memout()})

	case errors.Is(err, ErrTimeExceeded):
		p.finalize(wa)
		p.results.Push(Outcome{Key: j.key, Result: Result{}, Status: EStatus.Timeout()})

	default:
		var tr *terminationRequest
		if errors.As(err, &tr) {
			p.handleTermination(wa, j, tr)
			return
		}
		// Anything else is a programmer error in the job itself (spec 7:
		// "all other exceptions ... are programmer errors ... allowed to
		// propagate out of the worker, terminating the pool"). We stay
		// inside Go's no-panic-across-goroutines discipline by surfacing
		// it as an EStatus.Error() outcome and triggering a pool-wide shutdown
		// once in-flight work drains, rather than panicking this goroutine.
		p.finalize(wa)
		p.results.Push(Outcome{Key: j.key, Result: Result{}, Status: EStatus.Error(), Err: err})
		p.triggerFatalShutdown(err)
	}
}

// handleTermination implements worker-loop step 6: update the job's learned
// estimate, bump its termination count, and either requeue it or give up
// with a permanent MEMOUT.
func (p *Pool) handleTermination(wa *WorkerAccountant, j *job, tr *terminationRequest) {
	newEstimate := maxInt64(maxInt64(tr.neededBytes, wa.peak), wa.reserved)
	if newEstimate > j.memnbt {
		j.memnbt = newEstimate // invariant: memnbt is monotonically non-decreasing (P3)
	}
	j.terminationCount++

	p.finalize(wa)
	tr.lock.Unlock() // release the termination lock only after finalize

	if p.acc.CanFit(j.memnbt) {
		p.pending.Push(j)
		return
	}
	p.results.Push(Outcome{Key: j.key, Result: Result{}, Status: EStatus.Memout()})
}

// finalize returns every byte this job still holds reserved, including the
// part covering its allocations (no Shrink can follow once the job has
// returned), then resets the accountant for the next job (invariant I4: all
// reservations made for a finished job are returned).
func (p *Pool) finalize(wa *WorkerAccountant) {
	p.acc.Unreserve(wa.reserved)
	wa.reserved = 0
	wa.allocated = 0
	wa.reset()
}
