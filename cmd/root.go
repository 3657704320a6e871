// Package cmd is the xpool CLI, grounded on azcopy's cmd/root.go: a cobra
// root command carrying persistent flags, with a global lifecycle-manager
// hook (common.RunHooks) standing in for azcopy's glcm so subcommands never
// call os.Exit directly.
package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cnfsuite/xpool/common"
)

var (
	memCapRaw  string
	workers    int
	timeCapRaw string
)

var rootCmd = &cobra.Command{
	Use:   "xpool",
	Short: "Bounded-resource parallel feature extraction for Boolean-constraint benchmarks",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

// rhm is the run-hooks manager, azcopy's glcm role reduced to this repo's
// needs: info/warn lines and a final exit hook a subcommand can call
// instead of os.Exit.
var rhm = common.GetRunHooks()

// Execute adds all child commands to the root command and runs it. Called
// once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rhm.Exit(err.Error(), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&memCapRaw, "mem-cap", "1GiB", "memory cap for the job pool, e.g. 512MiB, 2GiB")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "worker count; 0 computes a default from CPU count and XPOOL_WORKERS")
	rootCmd.PersistentFlags().StringVar(&timeCapRaw, "time-cap", "30s", "per-job wall-clock cap, e.g. 10s, 2m")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(identifyCmd)
}

// parsePoolFlags turns the persistent flag strings into an engine.Config
// fragment, grounded on the teacher's use of a parsing library for
// human-readable sizes (dustin/go-humanize) rather than hand-rolled unit
// parsing.
func parsePoolFlags() (memCapBytes int64, timeCap time.Duration, err error) {
	memCapBytes, err = parseByteSize(memCapRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("xpool: invalid --mem-cap %q: %w", memCapRaw, err)
	}
	timeCap, err = time.ParseDuration(timeCapRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("xpool: invalid --time-cap %q: %w", timeCapRaw, err)
	}
	return memCapBytes, timeCap, nil
}

func parseByteSize(raw string) (int64, error) {
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// newRunID tags one pool run for log correlation, grounded on the
// teacher's use of google/uuid for JobID.
func newRunID() string {
	return uuid.New().String()
}

func defaultWorkers() int {
	if workers > 0 {
		return workers
	}
	return common.ComputeConcurrencyValue(runtime.NumCPU())
}
