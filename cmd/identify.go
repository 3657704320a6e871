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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cnfsuite/xpool/common"
	"github.com/cnfsuite/xpool/corpus"
	"github.com/cnfsuite/xpool/engine"
	"github.com/cnfsuite/xpool/identify"
)

type rawIdentifyCmdArgs struct {
	root       string
	degree     bool
	exts       []string
	corpusPara int
}

var rawIdentify = rawIdentifyCmdArgs{}

var identifyCmd = &cobra.Command{
	Use:   "identify <dir>",
	Short: "Print a stable content-derived identifier for every benchmark file under dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		rawIdentify.root = args[0]
		return runIdentify(rawIdentify)
	},
}

func init() {
	identifyCmd.Flags().BoolVar(&rawIdentify.degree, "degree", false, "use the isomorphism-invariant degree-sequence hash instead of the content hash")
	identifyCmd.Flags().StringSliceVar(&rawIdentify.exts, "ext", defaultExts, "file extensions to match (case-insensitive)")
	identifyCmd.Flags().IntVar(&rawIdentify.corpusPara, "scan-parallelism", 8, "directory-scan concurrency for the corpus walk")
}

func runIdentify(raw rawIdentifyCmdArgs) error {
	memCapBytes, timeCap, err := parsePoolFlags()
	if err != nil {
		return err
	}

	runID := newRunID()
	logger := common.NewStdLogger(common.ELogLevel.Info(), nil)
	defer logger.Close()
	logger.Log(common.ELogLevel.Info(), fmt.Sprintf("xpool identify run %s: mem-cap=%s workers=%d",
		runID, common.ByteSizeToString(memCapBytes, false), defaultWorkers()))

	pool := engine.New(engine.Config{
		MemoryCapBytes: memCapBytes,
		Workers:        defaultWorkers(),
		TimeCap:        timeCap,
		Logger:         logger,
	})
	defer pool.Shutdown()

	hashFn := identify.ContentHash
	column := "content_hash"
	if raw.degree {
		hashFn = identify.DegreeHash
		column = "degree_hash"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitted := 0
	for r := range corpus.Walk(ctx, raw.root, raw.corpusPara, raw.exts...) {
		if r.Err != nil {
			rhm.Warn(fmt.Sprintf("xpool: skipping %s: %v", r.Path, r.Err))
			continue
		}
		pool.Submit(r.Path, r.Path, hashFn)
		submitted++
	}

	collected := 0
	for collected < submitted {
		o, ok := pool.Poll()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		collected++
		printIdentifyOutcome(o, column)
	}
	return nil
}

func printIdentifyOutcome(o engine.Outcome, column string) {
	switch o.Status {
	case engine.EStatus.Success():
		fmt.Printf("%s\t%s\n", o.Key, o.Result[column].String())
	case engine.EStatus.Memout():
		fmt.Printf("%s\tMEMOUT\n", o.Key)
	case engine.EStatus.Timeout():
		fmt.Printf("%s\tTIMEOUT\n", o.Key)
	default:
		fmt.Printf("%s\tERROR: %v\n", o.Key, o.Err)
	}
}
