// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cnfsuite/xpool/common"
	"github.com/cnfsuite/xpool/corpus"
	"github.com/cnfsuite/xpool/engine"
	"github.com/cnfsuite/xpool/feature"
)

// rawExtractCmdArgs is the unvalidated form of the extract command's
// arguments, following the teacher's rawBenchmarkCmdArgs/rawCopyCmdArgs
// naming convention of keeping flag-parsed strings separate from the typed
// values derived from them.
type rawExtractCmdArgs struct {
	root       string
	gates      bool
	exts       []string
	csvOut     string
	corpusPara int
}

var rawExtract = rawExtractCmdArgs{}

var extractCmd = &cobra.Command{
	Use:   "extract <dir>",
	Short: "Extract structural feature vectors for every benchmark file under dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		rawExtract.root = args[0]
		return runExtract(rawExtract)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&rawExtract.gates, "gates", false, "also run the gate-recognition extractor")
	extractCmd.Flags().StringSliceVar(&rawExtract.exts, "ext", defaultExts, "file extensions to match (case-insensitive)")
	extractCmd.Flags().StringVar(&rawExtract.csvOut, "csv", "", "write the feature table to this path instead of stdout")
	extractCmd.Flags().IntVar(&rawExtract.corpusPara, "scan-parallelism", 8, "directory-scan concurrency for the corpus walk")
}

var defaultExts = []string{".cnf", ".wcnf", ".opb", ".qdimacs", ".gz", ".zst"}

func runExtract(raw rawExtractCmdArgs) error {
	memCapBytes, timeCap, err := parsePoolFlags()
	if err != nil {
		return err
	}

	runID := newRunID()
	logger := common.NewStdLogger(common.ELogLevel.Info(), nil)
	defer logger.Close()
	logger.Log(common.ELogLevel.Info(), fmt.Sprintf("xpool extract run %s: mem-cap=%s workers=%d",
		runID, common.ByteSizeToString(memCapBytes, false), defaultWorkers()))

	pool := engine.New(engine.Config{
		MemoryCapBytes: memCapBytes,
		Workers:        defaultWorkers(),
		TimeCap:        timeCap,
		Logger:         logger,
	})
	defer pool.Shutdown()

	out := os.Stdout
	if raw.csvOut != "" {
		f, err := os.Create(raw.csvOut)
		if err != nil {
			return fmt.Errorf("xpool: create %s: %w", raw.csvOut, err)
		}
		defer f.Close()
		out = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitted := submitExtractJobs(ctx, pool, raw)
	return writeExtractResults(pool, out, submitted)
}

// submitExtractJobs feeds every matched corpus file into pool as one or two
// jobs (base features, and optionally gate features as a second job whose
// key shares the same path prefix, with a "#gate" instead of "#base"
// suffix), returning the total submitted so the caller knows
// how many outcomes to collect.
func submitExtractJobs(ctx context.Context, pool *engine.Pool, raw rawExtractCmdArgs) int {
	submitted := 0
	for r := range corpus.Walk(ctx, raw.root, raw.corpusPara, raw.exts...) {
		if r.Err != nil {
			continue
		}
		path := r.Path
		pool.Submit(path+"#base", path, feature.Base)
		submitted++
		if raw.gates {
			pool.Submit(path+"#gate", path, feature.Gate)
			submitted++
		}
	}
	return submitted
}

// writeExtractResults polls pool until submitted outcomes have been
// collected, then writes them as a CSV whose header is the sorted union of
// every result's keys — formulas of different kinds produce different
// feature sets, so no single fixed column list covers every row.
func writeExtractResults(pool *engine.Pool, out *os.File, submitted int) error {
	outcomes := make([]engine.Outcome, 0, submitted)
	for len(outcomes) < submitted {
		if o, ok := pool.Poll(); ok {
			outcomes = append(outcomes, o)
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}

	columns := unionResultColumns(outcomes)
	w := csv.NewWriter(out)
	defer w.Flush()

	header := append([]string{"key", "status"}, columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, o := range outcomes {
		row := make([]string, 0, len(header))
		row = append(row, o.Key, o.Status.String())
		for _, col := range columns {
			if v, ok := o.Result[col]; ok {
				row = append(row, v.String())
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func unionResultColumns(outcomes []engine.Outcome) []string {
	seen := make(map[string]bool)
	for _, o := range outcomes {
		for k := range o.Result {
			seen[k] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}
