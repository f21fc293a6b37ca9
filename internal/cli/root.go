// Package cli builds the taskloom command tree: demo workloads and a small
// benchmark, each exercising the runtime end to end and optionally writing
// a durable run report.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskloom/internal/graph"
	"taskloom/internal/pool"
	"taskloom/internal/runlog"
	"taskloom/internal/trace"
)

var (
	flagWorkers   int
	flagSpin      int
	flagReportDir string
	flagTasks     int
)

// NewRootCmd constructs the taskloom CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskloom",
		Short: "Run task-parallel workloads on the taskloom runtime",
		Long: `Taskloom is a small cooperative task-parallel runtime: deferred tasks
with declared data effects, derived sibling dependencies, a fixed worker
pool, and structured synchronization (taskwait, taskgroup, barrier).

The CLI runs built-in workloads against the runtime and prints a summary
with the canonical trace hash of each run.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "Worker count (0 = hardware parallelism)")
	rootCmd.PersistentFlags().IntVar(&flagSpin, "spin", 0, "Idle spin count before workers sleep (0 = default)")
	rootCmd.PersistentFlags().StringVar(&flagReportDir, "report-dir", "", "Write a JSON run report under this directory")

	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(benchCmd())
	return rootCmd
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in demo workloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, w := range demoWorkloads() {
				if err := runWorkload(cmd, w); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run independent tasks and report wall time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(cmd, fanoutWorkload("bench", flagTasks))
		},
	}
	cmd.Flags().IntVar(&flagTasks, "tasks", 1000, "Number of independent tasks")
	return cmd
}

// runWorkload executes one workload on a fresh graph and pool, prints its
// summary, and writes a report when --report-dir is set.
func runWorkload(cmd *cobra.Command, w workload) error {
	rec := trace.NewRecorder()
	g := graph.New(rec)
	p := pool.New(g, pool.Config{Workers: flagWorkers, SpinCount: flagSpin})

	ctx := cmd.Context()
	p.Start(ctx)

	start := time.Now()
	runErr := w.run(ctx, g, p)
	elapsed := time.Since(start)

	if err := p.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", w.name, err)
	}

	stats := g.Stats()
	hash, err := rec.Trace(w.name).Hash()
	if err != nil {
		return fmt.Errorf("%s: trace: %w", w.name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-12s workers=%d submitted=%d inlined=%d completed=%d failed=%d wall=%s\n",
		w.name, p.Workers(), stats.Submitted, stats.Inlined, stats.Completed, stats.Failed, elapsed.Round(time.Microsecond))
	fmt.Fprintf(cmd.OutOrStdout(), "%-12s trace=%s\n", w.name, hash)

	if flagReportDir != "" {
		if err := writeReport(w.name, p.Workers(), start, elapsed, stats, hash); err != nil {
			return fmt.Errorf("%s: report: %w", w.name, err)
		}
	}
	return runErr
}

func writeReport(name string, workers int, start time.Time, elapsed time.Duration, stats graph.Stats, hash string) error {
	store, err := runlog.NewStore(flagReportDir)
	if err != nil {
		return err
	}
	failed := make([]uint64, 0, len(stats.FailedTasks))
	for _, id := range stats.FailedTasks {
		failed = append(failed, uint64(id))
	}
	return store.Save(runlog.Report{
		RunID:          uuid.NewString(),
		Workload:       name,
		Workers:        workers,
		StartTime:      start.UTC(),
		DurationMS:     elapsed.Milliseconds(),
		TasksSubmitted: stats.Submitted,
		TasksInlined:   stats.Inlined,
		TasksCompleted: stats.Completed,
		TasksFailed:    stats.Failed,
		FailedTasks:    failed,
		TraceHash:      hash,
	})
}
