package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Telemetry is the optional supervisor side-component from spec 9: it
// samples pool state on a fixed period and writes a CSV with columns time,
// allocated, reserved, rss, jobs. It is observation only and is never part of
// the engine's contract — a Pool runs identically whether or not one is
// attached.
//
// Grounded on common.SystemStatsMonitor's sampling-loop shape, trimmed down
// to the one thing this engine actually needs to observe: process RSS next
// to the accountant's own bookkeeping, via gopsutil/v3/process the same way
// the teacher reads its own process memory.
type Telemetry struct {
	pool     *Pool
	proc     *process.Process
	interval time.Duration
}

// NewTelemetry attaches a sampler to pool. interval defaults to
// SupervisorInterval when zero or negative.
func NewTelemetry(pool *Pool, interval time.Duration) (*Telemetry, error) {
	if interval <= 0 {
		interval = SupervisorInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("telemetry: read current process: %w", err)
	}
	return &Telemetry{pool: pool, proc: proc, interval: interval}, nil
}

// Run samples until ctx is done, writing one CSV row per sample to w. It
// blocks, so callers typically run it in its own goroutine.
func (t *Telemetry) Run(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"time", "allocated", "reserved", "rss", "jobs"}); err != nil {
		return err
	}
	cw.Flush()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			allocated, _ := t.pool.reg.Snapshot()

			row := []string{
				now.UTC().Format(time.RFC3339Nano),
				strconv.FormatInt(allocated, 10),
				strconv.FormatInt(t.pool.acc.Reserved(), 10),
				strconv.FormatUint(t.rss(), 10),
				strconv.FormatInt(t.pool.pending.Len()+t.pool.results.Len(), 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
			cw.Flush()
		}
	}
}

// rss reads the current process's resident set size; zero on any gopsutil
// failure, since telemetry must tolerate best-effort reads without upsetting
// the engine it's observing.
func (t *Telemetry) rss() uint64 {
	info, err := t.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
