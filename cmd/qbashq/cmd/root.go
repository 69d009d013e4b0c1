// Package cmd provides the CLI commands for qbashq.
package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qbasher/qbashq/internal/config"
	"github.com/qbasher/qbashq/internal/engine"
	"github.com/qbasher/qbashq/internal/engineerr"
	"github.com/qbasher/qbashq/internal/logging"
	"github.com/qbasher/qbashq/internal/output"
	"github.com/qbasher/qbashq/internal/profiling"
	"github.com/qbasher/qbashq/internal/telemetry"
	"github.com/qbasher/qbashq/pkg/version"
)

var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the qbashq query evaluator.
func NewRootCmd() *cobra.Command {
	var indexStem string
	var numTerms, numDocs int
	var k int
	var lowScoreCutoff, postingsCountCutoff uint64
	var queryShorteningThreshold, n int
	var enableTelemetry bool

	cmd := &cobra.Command{
		Use:     "qbashq",
		Short:   "Score-at-a-time query evaluator over an impact-ordered inverted index",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(indexStem)
			if err != nil {
				return err
			}
			params, err := config.Load(cmd.Flags(), defaults)
			if err != nil {
				return err
			}
			return runEvaluate(cmd, params, enableTelemetry)
		},
	}

	cmd.SetVersionTemplate("qbashq version {{.Version}}\n")

	cmd.Flags().StringVar(&indexStem, "indexStem", "", "path prefix for <indexStem>.vocab and <indexStem>.if (required)")
	cmd.Flags().IntVar(&numTerms, "numTerms", 0, "vocabulary size (required, > 0)")
	cmd.Flags().IntVar(&numDocs, "numDocs", 0, "corpus size in documents (required, > 0)")
	cmd.Flags().IntVar(&k, "k", 10, "top-k ranking size")
	cmd.Flags().Uint64Var(&lowScoreCutoff, "lowScoreCutoff", 0, "terminate when the highest unprocessed qscore falls below this")
	cmd.Flags().Uint64Var(&postingsCountCutoff, "postingsCountCutoff", 0, "terminate after this many postings are processed (0 disables)")
	cmd.Flags().IntVar(&queryShorteningThreshold, "query_shortening_threshold", 0, "target distinct-term count for query shortening (0 disables)")
	cmd.Flags().IntVar(&n, "N", 0, "corpus document count, used by the shortener's frequency heuristic")
	cmd.Flags().BoolVar(&enableTelemetry, "telemetry", false, "record per-query diagnostics to <indexStem>.telemetry.db")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "write execution trace to file")
	cmd.PersistentFlags().IntVar(&debugLevel, "debug", 0, "verbosity level (0=off, 1=info, 2+=debug)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug-log", false, "enable debug logging to ~/.qbashq/logs/")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newTermCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

var debugLevel int

// levelForDebug maps the --debug verbosity tier onto a logging.Config
// level, per §6: 0 is quiet (warnings and above), 1 reports normal
// progress, 2 and above turns on full debug detail.
func levelForDebug(n int) string {
	switch {
	case n <= 0:
		return "warn"
	case n == 1:
		return "info"
	default:
		return "debug"
	}
}

func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		cfg := logging.DebugConfig()
		cfg.Level = levelForDebug(debugLevel)
		logger, cleanup, err := logging.Setup(cfg)
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()), slog.String("level", cfg.Level))
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runEvaluate opens the index, then evaluates one query per stdin
// line until EOF, writing results to stdout and a progress count to
// stderr every 10 queries, per §6. When telemetryEnabled, each query's
// diagnostics are also persisted to the telemetry store for the stats
// command to tail.
func runEvaluate(cmd *cobra.Command, params engine.Params, telemetryEnabled bool) error {
	ev, err := engine.NewEvaluator(params)
	if err != nil {
		printEvalError(cmd, err)
		return err
	}
	defer func() {
		if cerr := ev.Close(); cerr != nil {
			slog.Warn("failed to close index", slog.String("error", cerr.Error()))
		}
	}()

	metrics, closeMetrics, err := setupTelemetry(params.IndexStem, telemetryEnabled)
	if err != nil {
		return err
	}
	defer closeMetrics()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, engine.MaxQueryLineBytes), engine.MaxQueryLineBytes)

	out := cmd.OutOrStdout()
	progress := output.New(cmd.ErrOrStderr())
	qCount := 0

	for scanner.Scan() {
		line := scanner.Text()
		termids := parseQueryLine(line)
		distinctBefore := distinctTermIDCount(termids)

		start := time.Now()
		res, err := ev.ProcessQuery(termids)
		latency := time.Since(start)
		if err != nil {
			printEvalError(cmd, err)
			return err
		}

		writeResult(out, res)

		if metrics != nil {
			event := telemetry.NewQueryEvent(termids, len(res.Ranking), latency)
			event.DistinctTermsBefore = distinctBefore
			event.DistinctTermsAfter = distinctBefore
			event.PostingsProcessed = res.PostingsProcessed
			event.CutoffReason = res.CutoffReason.String()
			event.TouchedCount = res.TouchedCount
			if err := metrics.Record(event); err != nil {
				slog.Warn("failed to record telemetry", slog.String("error", err.Error()))
			}
		}

		qCount++
		if qCount%10 == 0 {
			progress.Statusf("", "%d queries processed", qCount)
		}
	}

	return scanner.Err()
}

// setupTelemetry opens the telemetry store and collector when enabled.
// The returned cleanup func is always safe to call.
func setupTelemetry(indexStem string, enabled bool) (*telemetry.QueryMetrics, func(), error) {
	noop := func() {}
	if !enabled {
		return nil, noop, nil
	}

	store, err := telemetry.OpenStore(telemetry.StorePath(indexStem), telemetry.DetectBackend())
	if err != nil {
		return nil, noop, fmt.Errorf("open telemetry store: %w", err)
	}

	metrics := telemetry.NewQueryMetrics(store)
	return metrics, func() {
		if err := metrics.Close(); err != nil {
			slog.Warn("failed to close telemetry collector", slog.String("error", err.Error()))
		}
		if err := store.Close(); err != nil {
			slog.Warn("failed to close telemetry store", slog.String("error", err.Error()))
		}
	}, nil
}

// distinctTermIDCount counts distinct termids in a query.
func distinctTermIDCount(termids []uint32) int {
	seen := make(map[uint32]struct{}, len(termids))
	for _, t := range termids {
		seen[t] = struct{}{}
	}
	return len(seen)
}

// parseQueryLine splits a query line into whitespace-separated decimal
// termids, up to MaxQTerms. A parse failure at some position ends the
// term list at that position; everything parsed so far is still
// evaluated.
func parseQueryLine(line string) []uint32 {
	fields := strings.Fields(line)
	termids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		if len(termids) >= engine.MaxQTerms {
			break
		}
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			break
		}
		termids = append(termids, uint32(v))
	}
	return termids
}

func writeResult(out interface{ Write([]byte) (int, error) }, res engine.QueryResult) {
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprint(w, "Query:")
	for _, t := range res.TermIDs {
		fmt.Fprintf(w, " %d", t)
	}
	fmt.Fprintln(w)

	for _, r := range res.Ranking {
		fmt.Fprintf(w, "%d\t%d\t%d\n", r.Rank, r.DocID, r.Score)
	}
	fmt.Fprintln(w)
}

func printEvalError(cmd *cobra.Command, err error) {
	fmt.Fprint(cmd.ErrOrStderr(), engineerr.FormatForCLI(err))
}
