// Package engine implements the bounded-resource parallel job engine: a
// fixed pool of workers that execute caller-supplied functions under a
// shared memory cap and a per-job wall-clock cap, with cooperative
// cancellation and learned-estimate requeueing when a job is terminated
// for exceeding its memory budget.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/cnfsuite/xpool/common"
)

// Per-job buffer constant B0: the initial memnbt estimate given to a job
// that has never been terminated.
const DefaultJobBuffer int64 = 20 * 1024 * 1024

const (
	workerIdleSleep    = 5 * time.Millisecond
	reserveRetrySleep  = 5 * time.Millisecond
	reserveRetryLimit  = 400 // up to ~2s of jittered spinning before the blocking lock fallback
	SupervisorInterval = 20 * time.Millisecond
)

// Status is the result record's status, a teacher-style reflection enum
// (see common.EnumHelper): the symbol is whichever method on the zero value
// returns itself.
type Status uint8

func (Status) Success() Status { return Status(0) }
func (Status) Memout() Status  { return Status(1) }
func (Status) Timeout() Status { return Status(2) }

// Error is not one of the spec's three result statuses; it is the engine's
// own escape hatch for a job's non-sentinel (programmer) error, see
// Pool.runJob and Pool.FatalErr.
func (Status) Error() Status { return Status(3) }

var EStatus Status

func (s Status) String() string {
	return common.EnumHelper{}.StringInteger(s, reflect.TypeOf(s))
}

// Value is a single feature-result cell: either a number or a short status
// string, never both.
type Value struct {
	num    float64
	text   string
	isText bool
}

func Number(n float64) Value { return Value{num: n} }
func Text(s string) Value    { return Value{text: s, isText: true} }

func (v Value) Float() (float64, bool) { return v.num, !v.isText }
func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return fmt.Sprintf("%g", v.num)
}

// Result is the job's result value: a mapping from feature/field name to a Value.
type Result map[string]Value

// Args is the opaque argument tuple a job runs against. Key identifies the
// submission for the caller; Value is whatever the caller's Func expects
// (typically a file path, or a pre-parsed formula handed in by a
// collaborator upstream of the engine).
type Args struct {
	Key   string
	Value any
}

// Func is a job: a function from an argument tuple to a result, using b for
// every allocation it performs. Func must be re-entrant: the engine may
// invoke it again with the same Args after a termination, with no side
// effects from the earlier attempt observable to the new one.
type Func func(ctx context.Context, args Args, b *Budget) (Result, error)

// Outcome is the result-queue record: spec's "result record" (value,
// status), plus the originating key and, for EStatus.Error(), the offending error.
type Outcome struct {
	Key    string
	Result Result
	Status Status
	Err    error
}

// Config configures a Pool.
type Config struct {
	// MemoryCapBytes is the pool-wide memory cap M.
	MemoryCapBytes int64
	// Workers is the worker count W. Zero or negative means "compute a
	// default from the number of CPUs", see common.ComputeConcurrencyValue.
	Workers int
	// TimeCap is the per-job wall-clock cap tau.
	TimeCap time.Duration
	// Logger receives diagnostic lines; defaults to a stderr logger at
	// Warning level.
	Logger common.ILogger
	// JobBuffer overrides DefaultJobBuffer (B0), mainly for tests that need
	// a small, deterministic initial estimate.
	JobBuffer int64
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
