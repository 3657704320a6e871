// Package corpus walks a directory tree looking for benchmark files, in
// bounded parallel, and streams matching paths to the caller.
//
// Grounded on common/parallel's TreeCrawler: a condition-variable-guarded
// queue of unstarted directories, breadth-first pop while the queue is
// small, depth-first fallback once it grows large. The sync-specific
// source/target-traverser halves of that file don't apply to a single
// corpus scan and are dropped; what remains is the crawl loop itself.
package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cnfsuite/xpool/common"
)

// Result is one matched file, or a directory read error encountered along
// the way (the walk does not stop at the first unreadable directory).
type Result struct {
	Path string
	Err  error
}

const (
	maxQueuedDirs = 100 * 1000
	dirHighWater  = 20 * 1000
)

type crawler struct {
	cond          *sync.Cond
	unstartedDirs []string
	inProgress    int64
	exts          map[string]bool
	output        chan Result

	// dirBacklog tracks len(unstartedDirs) outside the cond lock so a
	// worker that just discovered a large batch of children can wait for
	// the backlog to drain before picking up more work, the same
	// high/low-water-mark backpressure TreeCrawler.go applies to its
	// tqueue.
	dirBacklog *common.SharedCounter
}

// Walk scans root for files whose extension (case-insensitive, with the
// leading dot) is in exts, using parallelism concurrent directory workers.
// The returned channel is closed once the whole tree has been visited or
// ctx is cancelled.
func Walk(ctx context.Context, root string, parallelism int, exts ...string) <-chan Result {
	if parallelism < 1 {
		parallelism = 1
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	c := &crawler{
		cond:          sync.NewCond(&sync.Mutex{}),
		unstartedDirs: []string{root},
		exts:          extSet,
		output:        make(chan Result, 256),
		dirBacklog:    common.NewSharedCount(),
	}
	c.dirBacklog.Add(1) // root is already in unstartedDirs

	go c.run(ctx, parallelism)
	return c.output
}

func (c *crawler) run(ctx context.Context, parallelism int) {
	var wg sync.WaitGroup
	wg.Add(parallelism)
	for i := 0; i < parallelism; i++ {
		go func(workerIndex int) {
			defer wg.Done()
			c.workerLoop(ctx, workerIndex)
		}(i)
	}
	wg.Wait()
	close(c.output)
}

func (c *crawler) workerLoop(ctx context.Context, workerIndex int) {
	for ctx.Err() == nil {
		dir, ok := c.nextDir(ctx)
		if !ok {
			return
		}
		c.visit(ctx, dir)
	}
}

// nextDir pops the next directory to examine, blocking on the condition
// variable while the queue is empty but other workers are still in
// progress (meaning more directories may yet be discovered).
func (c *crawler) nextDir(ctx context.Context) (string, bool) {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()

	for len(c.unstartedDirs) == 0 && c.inProgress > 0 && ctx.Err() == nil {
		c.cond.Wait()
	}

	if ctx.Err() != nil || len(c.unstartedDirs) == 0 {
		return "", false
	}

	var dir string
	if len(c.unstartedDirs) < maxQueuedDirs {
		dir, c.unstartedDirs = c.unstartedDirs[0], c.unstartedDirs[1:]
	} else {
		last := len(c.unstartedDirs) - 1
		dir, c.unstartedDirs = c.unstartedDirs[last], c.unstartedDirs[:last]
	}
	c.inProgress++
	c.dirBacklog.Add(-1)
	c.cond.Broadcast()
	return dir, true
}

func (c *crawler) visit(ctx context.Context, dir string) {
	defer func() {
		c.cond.L.Lock()
		c.inProgress--
		c.cond.Broadcast()
		c.cond.L.Unlock()
	}()

	entries, err := os.ReadDir(dir)
	if err != nil {
		c.emit(ctx, Result{Path: dir, Err: err})
		return
	}

	var children []string
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			children = append(children, full)
			continue
		}
		if c.matches(e.Name()) {
			c.emit(ctx, Result{Path: full})
		}
	}

	if len(children) == 0 {
		return
	}
	c.cond.L.Lock()
	c.unstartedDirs = append(c.unstartedDirs, children...)
	c.cond.Broadcast()
	c.cond.L.Unlock()
	c.dirBacklog.Add(int64(len(children)))

	// Back off while the discovered-but-unvisited backlog is large, so a
	// directory tree with a huge fan-out near the root doesn't balloon
	// unstartedDirs before the other workers get a chance to drain it.
	c.dirBacklog.WaitUntilLessThan(dirHighWater)
}

func (c *crawler) matches(name string) bool {
	if len(c.exts) == 0 {
		return true
	}
	return c.exts[strings.ToLower(filepath.Ext(name))]
}

func (c *crawler) emit(ctx context.Context, r Result) {
	select {
	case c.output <- r:
	case <-ctx.Done():
	}
}
