package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cnfsuite/xpool/common"
)

// Pool is the engine's facade (component H): lifecycle, submission, and
// polling. A Pool owns one MemoryAccountant and one Registry, shared by
// every worker it spawns.
//
// Grounded on ste.JobsAdmin's lifecycle shape (new/submit/poll/shutdown),
// with golang.org/x/sync/errgroup standing in for its ad hoc WaitGroup
// bookkeeping when starting and joining worker goroutines.
type Pool struct {
	cfg Config
	acc *MemoryAccountant
	reg *Registry

	pending *jobQueue
	results *resultQueue

	termLock sync.Mutex

	logger common.ILogger

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	shuttingDown atomic.Bool
	shutdownOnce sync.Once

	fatalOnce sync.Once
	fatalErr  error
}

// New constructs a pool, initializes its memory accountant, and spawns
// cfg.Workers worker goroutines. A zero or negative Workers falls back to
// common.ComputeConcurrencyValue (the XPOOL_WORKERS-aware default).
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = common.ComputeConcurrencyValue(runtime.NumCPU())
	}
	if cfg.JobBuffer <= 0 {
		cfg.JobBuffer = DefaultJobBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = common.NewStdLogger(common.ELogLevel.Warning(), nil)
	}

	acc := NewMemoryAccountant(cfg.MemoryCapBytes, cfg.TimeCap)
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	p := &Pool{
		cfg:     cfg,
		acc:     acc,
		reg:     NewRegistry(acc),
		pending: newJobQueue(),
		results: newResultQueue(),
		logger:  cfg.Logger,
		ctx:     egCtx,
		cancel:  cancel,
		eg:      eg,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.eg.Go(func() error {
			p.runWorker()
			return nil
		})
	}

	return p
}

// Submit constructs a job record with memnbt = B0 and enqueues it. Per the
// ordering guarantee, submissions from a single caller goroutine appear in
// the pending queue in submission order.
func (p *Pool) Submit(key string, value any, fn Func) {
	p.pending.Push(newJob(key, value, fn, p.cfg.JobBuffer))
}

// Poll is non-blocking: it returns a result if one is available.
func (p *Pool) Poll() (Outcome, bool) {
	return p.results.TryPop()
}

// Ready reports whether the result queue is non-empty.
func (p *Pool) Ready() bool {
	return p.results.Len() > 0
}

// FatalErr returns the first non-sentinel job error that triggered an
// automatic shutdown, if any (see Status.Error and triggerFatalShutdown).
func (p *Pool) FatalErr() error {
	return p.fatalErr
}

// Shutdown sets the done flag, joins all workers, and resets the memory
// accountant. Safe to call more than once, including concurrently with
// itself from the fatal-shutdown path triggered by a programmer error.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.shuttingDown.Store(true)
	})
	_ = p.eg.Wait()
	p.cancel()
	p.acc.Unreserve(p.acc.Reserved())
}

func (p *Pool) triggerFatalShutdown(err error) {
	p.fatalOnce.Do(func() {
		p.fatalErr = err
		p.logger.Log(common.ELogLevel.Error(), "job reported a non-sentinel error, shutting down: "+err.Error())
		go p.Shutdown()
	})
}
