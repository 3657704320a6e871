package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kb = int64(1024)
	mb = 1024 * kb
)

// drain polls p until it produces n outcomes or the deadline passes.
func drain(t *testing.T, p *Pool, n int, timeout time.Duration) []Outcome {
	t.Helper()
	deadline := time.Now().Add(timeout)
	out := make([]Outcome, 0, n)
	for len(out) < n {
		if o, ok := p.Poll(); ok {
			out = append(out, o)
			continue
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d outcomes, got %d", n, len(out))
		}
		time.Sleep(time.Millisecond)
	}
	return out
}

// TestScenarioTrivialSuccess is S1.
func TestScenarioTrivialSuccess(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 1024 * mb, Workers: 2, TimeCap: 10 * time.Second})
	defer p.Shutdown()

	p.Submit("only", nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
		if err := b.Grow(1 * mb); err != nil {
			return nil, err
		}
		buf := make([]byte, mb)
		for i := range buf {
			buf[i] = 0
		}
		return Result{"ok": Number(1.0)}, nil
	})

	results := drain(t, p, 1, 5*time.Second)
	a.Equal(EStatus.Success(), results[0].Status)
	f, isNum := results[0].Result["ok"].Float()
	a.True(isNum)
	a.Equal(1.0, f)
}

// TestScenarioDeterministicMemout is S2.
func TestScenarioDeterministicMemout(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 1, Workers: 4, TimeCap: 60 * time.Second})
	defer p.Shutdown()

	for i := 0; i < 4; i++ {
		p.Submit(fmt.Sprintf("job-%d", i), nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
			if err := b.Grow(16); err != nil {
				return nil, err
			}
			return Result{"ok": Number(1.0)}, nil
		})
	}

	results := drain(t, p, 4, 5*time.Second)
	for _, r := range results {
		a.Equal(EStatus.Memout(), r.Status)
		a.Empty(r.Result)
	}
	p.Shutdown()
	a.EqualValues(0, p.acc.Reserved())
}

// TestScenarioRequeueThenSucceed is S3. It deliberately pre-reserves most of
// the pool's capacity with a white-box call to force the job's first growth
// request into the contended, termination-requesting path described in the
// scenario, rather than succeeding on the first try.
func TestScenarioRequeueThenSucceed(t *testing.T) {
	require := require.New(t)
	p := New(Config{MemoryCapBytes: 64 * mb, Workers: 1, TimeCap: 60 * time.Second, JobBuffer: 4 * mb})
	defer p.Shutdown()

	require.True(p.acc.TryReserve(60 * mb))

	attempt := 0
	p.Submit("only", nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
		attempt++
		if attempt == 1 {
			go func() {
				time.Sleep(50 * time.Millisecond)
				p.acc.Unreserve(60 * mb)
			}()
		}
		if err := b.Grow(8 * mb); err != nil {
			return nil, err
		}
		return Result{"done": Number(1.0)}, nil
	})

	results := drain(t, p, 1, 5*time.Second)
	require.Equal(EStatus.Success(), results[0].Status)
	f, _ := results[0].Result["done"].Float()
	require.Equal(1.0, f)
	require.Equal(2, attempt)
}

// TestScenarioDeterministicTimeout is S4.
func TestScenarioDeterministicTimeout(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 1024 * mb, Workers: 1, TimeCap: 0})
	defer p.Shutdown()

	p.Submit("only", nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
		if err := b.Grow(mb); err != nil {
			return nil, err
		}
		return Result{"ok": Number(1.0)}, nil
	})

	results := drain(t, p, 1, 5*time.Second)
	a.Equal(EStatus.Timeout(), results[0].Status)
	a.Empty(results[0].Result)
}

// TestScenarioParallelThroughputPreservesKeys is S5.
func TestScenarioParallelThroughputPreservesKeys(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 1024 * mb, Workers: 4, TimeCap: 60 * time.Second})
	defer p.Shutdown()

	const n = 100
	for i := 0; i < n; i++ {
		k := i
		p.Submit(fmt.Sprintf("%d", k), nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
			time.Sleep(10 * time.Millisecond)
			return Result{"i": Number(float64(k))}, nil
		})
	}

	results := drain(t, p, n, 10*time.Second)
	seen := make(map[string]bool, n)
	for _, r := range results {
		a.Equal(EStatus.Success(), r.Status)
		seen[r.Key] = true
	}
	a.Len(seen, n)
}

// TestScenarioIdempotentRerun is S6: S1 run twice in the same process, with
// a Shutdown between runs, produces identical payloads and drains the pool
// reservation back to zero each time.
func TestScenarioIdempotentRerun(t *testing.T) {
	a := assert.New(t)
	run := func() Outcome {
		p := New(Config{MemoryCapBytes: 1024 * mb, Workers: 2, TimeCap: 10 * time.Second})
		p.Submit("only", nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
			if err := b.Grow(mb); err != nil {
				return nil, err
			}
			return Result{"ok": Number(1.0)}, nil
		})
		results := drain(t, p, 1, 5*time.Second)
		p.Shutdown()
		a.EqualValues(0, p.acc.Reserved())
		return results[0]
	}

	first := run()
	second := run()
	a.Equal(first.Status, second.Status)
	a.Equal(first.Result, second.Result)
}

// TestConservation is P1: N submissions eventually produce exactly N
// results, each keyed to a distinct submission.
func TestConservation(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 256 * mb, Workers: 8, TimeCap: 10 * time.Second})
	defer p.Shutdown()

	const n = 250
	for i := 0; i < n; i++ {
		p.Submit(fmt.Sprintf("k%d", i), nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
			return Result{"ok": Number(1.0)}, nil
		})
	}

	results := drain(t, p, n, 15*time.Second)
	keys := make(map[string]bool, n)
	for _, r := range results {
		keys[r.Key] = true
	}
	a.Len(keys, n)
}

// TestBudgetRespect is P2: every successful reservation keeps the pool's
// reserved total within the cap.
func TestBudgetRespect(t *testing.T) {
	a := assert.New(t)
	const cap_ = 8 * mb
	p := New(Config{MemoryCapBytes: cap_, Workers: 6, TimeCap: 10 * time.Second, JobBuffer: 256 * kb})
	defer p.Shutdown()

	const n = 60
	for i := 0; i < n; i++ {
		p.Submit(fmt.Sprintf("k%d", i), nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
			if err := b.Grow(512 * kb); err != nil {
				return nil, err
			}
			a.LessOrEqual(p.acc.Reserved(), cap_)
			return Result{"ok": Number(1.0)}, nil
		})
	}
	drain(t, p, n, 15*time.Second)
	a.LessOrEqual(p.acc.Reserved(), cap_)
}

// TestMonotoneLearning is P3, exercised directly against the ledger rather
// than through a full pool run: a job that is terminated twice must see its
// memnbt only grow, never shrink, and never fall below the peak it reached
// on the attempt before.
func TestMonotoneLearning(t *testing.T) {
	a := assert.New(t)
	acc := NewMemoryAccountant(1024*mb, 10*time.Second)
	reg := NewRegistry(acc)
	wa := reg.Register()
	j := newJob("only", nil, nil, DefaultJobBuffer)

	firstEstimate := j.memnbt
	wa.peak = 6 * mb
	wa.reserved = 5 * mb
	tr1 := &terminationRequest{neededBytes: 6 * mb}
	p := &Pool{acc: acc}
	p.handleTerminationForTest(wa, j, tr1)
	a.GreaterOrEqual(j.memnbt, firstEstimate)
	a.GreaterOrEqual(j.memnbt, int64(6*mb))

	secondEstimateFloor := j.memnbt
	wa.peak = 9 * mb
	wa.reserved = 7 * mb
	tr2 := &terminationRequest{neededBytes: 9 * mb}
	p.handleTerminationForTest(wa, j, tr2)
	a.GreaterOrEqual(j.memnbt, secondEstimateFloor)
	a.GreaterOrEqual(j.memnbt, int64(9*mb))
	a.Equal(2, j.terminationCount)
}

// handleTerminationForTest exercises handleTermination with the pool's
// termination lock acquired here rather than by Budget.Grow, since the
// tests that use it drive the accounting directly.
func (p *Pool) handleTerminationForTest(wa *WorkerAccountant, j *job, tr *terminationRequest) {
	tr.lock = &p.termLock
	p.termLock.Lock()
	p.pending = newJobQueue()
	p.results = newResultQueue()
	p.handleTermination(wa, j, tr)
}

// TestBoundedRetries is P4 through a full pool run: a job whose growth
// request alone exceeds the pool cap is not requeued; it terminates as
// MEMOUT.
func TestBoundedRetries(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 4 * mb, Workers: 1, TimeCap: 10 * time.Second, JobBuffer: 1 * mb})
	defer p.Shutdown()

	p.Submit("toobig", nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
		if err := b.Grow(8 * mb); err != nil {
			return nil, err
		}
		return Result{"ok": Number(1.0)}, nil
	})

	results := drain(t, p, 1, 5*time.Second)
	a.Equal(EStatus.Memout(), results[0].Status)
}

// TestBoundedRetriesGivesUpAfterTermination drives handleTermination
// directly (the only way to observe its give-up branch deterministically:
// Budget.Grow's own cap check never lets a termination's neededBytes exceed
// the pool cap, so this boundary is reached only once a job's learned
// estimate has already been pushed there by an earlier round). Once
// CanFit(j.memnbt) is false the job must land in results as MEMOUT rather
// than being pushed back onto pending.
func TestBoundedRetriesGivesUpAfterTermination(t *testing.T) {
	a := assert.New(t)
	acc := NewMemoryAccountant(4*mb, 10*time.Second)
	reg := NewRegistry(acc)
	wa := reg.Register()
	j := newJob("toobig", nil, nil, 1*mb)

	wa.peak = 8 * mb
	wa.reserved = 8 * mb
	tr := &terminationRequest{neededBytes: 8 * mb}
	p := &Pool{acc: acc, pending: newJobQueue(), results: newResultQueue()}
	p.handleTerminationForTest(wa, j, tr)

	a.Equal(int64(8*mb), j.memnbt)
	a.Equal(int64(0), p.pending.Len())
	a.Equal(int64(1), p.results.Len())
	outcome, ok := p.results.TryPop()
	a.True(ok)
	a.Equal(EStatus.Memout(), outcome.Status)
}

// TestCooperativeCancellation is P5: a job that never allocates and never
// polls the clock completes even after its time cap has already elapsed,
// a documented limitation of purely cooperative cancellation.
func TestCooperativeCancellation(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 1024 * mb, Workers: 1, TimeCap: 1 * time.Nanosecond})
	defer p.Shutdown()

	p.Submit("only", nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
		return Result{"ok": Number(1.0)}, nil
	})

	results := drain(t, p, 1, 5*time.Second)
	a.Equal(EStatus.Success(), results[0].Status)
}

// TestNoLeaks is P6: after shutdown the pool's reserved counter returns to
// zero, across a mix of success, memout, and timeout outcomes.
func TestNoLeaks(t *testing.T) {
	a := assert.New(t)
	p := New(Config{MemoryCapBytes: 8 * mb, Workers: 4, TimeCap: 10 * time.Second, JobBuffer: mb})
	defer p.Shutdown()

	for i := 0; i < 10; i++ {
		i := i
		p.Submit(fmt.Sprintf("k%d", i), nil, func(ctx context.Context, args Args, b *Budget) (Result, error) {
			if i%3 == 0 {
				if err := b.Grow(32 * mb); err != nil {
					return nil, err
				}
			}
			return Result{"ok": Number(1.0)}, nil
		})
	}
	drain(t, p, 10, 10*time.Second)
	p.Shutdown()
	a.EqualValues(0, p.acc.Reserved())
}
