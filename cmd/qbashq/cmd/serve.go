package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/qbasher/qbashq/internal/config"
	"github.com/qbasher/qbashq/internal/engine"
	"github.com/qbasher/qbashq/internal/mcpsrv"
	"github.com/qbasher/qbashq/internal/output"
)

// newServeCmd opens the index once and exposes it as an MCP
// search_termids tool over stdio, so an AI assistant can drive SAAT
// queries without shelling out to the root command per query.
func newServeCmd() *cobra.Command {
	var indexStem string
	var numTerms, numDocs int
	var k int
	var lowScoreCutoff, postingsCountCutoff uint64
	var queryShorteningThreshold, n int
	var enableTelemetry bool
	var watchIndex bool
	var watchDebounce time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query evaluator as an MCP tool over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(indexStem)
			if err != nil {
				return err
			}
			params, err := config.Load(cmd.Flags(), defaults)
			if err != nil {
				return err
			}

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

			srv, err := mcpsrv.NewServer(ev)
			if err != nil {
				return fmt.Errorf("create MCP server: %w", err)
			}
			defer srv.Close()

			status := output.New(cmd.ErrOrStderr())
			status.Successf("search_termids ready over %s", params.IndexStem)

			metrics, closeMetrics, err := setupTelemetry(params.IndexStem, enableTelemetry)
			if err != nil {
				return err
			}
			defer closeMetrics()
			if metrics != nil {
				srv.SetMetrics(metrics)
			}

			if watchIndex {
				watch, err := ev.StartWatch(watchDebounce, func() error {
					if err := ev.Reload(); err != nil {
						return err
					}
					slog.Info("index reloaded", slog.String("indexStem", params.IndexStem))
					return nil
				})
				if err != nil {
					return fmt.Errorf("start index watch: %w", err)
				}
				defer func() {
					if err := watch.Stop(); err != nil {
						slog.Warn("failed to stop index watch", slog.String("error", err.Error()))
					}
				}()
				status.Statusf("👀", "watching %s for rebuilds (debounce %s)", params.IndexStem, watchDebounce)
			}

			return srv.Serve(cmd.Context(), "stdio")
		},
	}

	cmd.Flags().StringVar(&indexStem, "indexStem", "", "path prefix for <indexStem>.vocab and <indexStem>.if (required)")
	cmd.Flags().IntVar(&numTerms, "numTerms", 0, "vocabulary size (required, > 0)")
	cmd.Flags().IntVar(&numDocs, "numDocs", 0, "corpus size in documents (required, > 0)")
	cmd.Flags().IntVar(&k, "k", 10, "top-k ranking size")
	cmd.Flags().Uint64Var(&lowScoreCutoff, "lowScoreCutoff", 0, "terminate when the highest unprocessed qscore falls below this")
	cmd.Flags().Uint64Var(&postingsCountCutoff, "postingsCountCutoff", 0, "terminate after this many postings are processed (0 disables)")
	cmd.Flags().IntVar(&queryShorteningThreshold, "query_shortening_threshold", 0, "target distinct-term count for query shortening (0 disables)")
	cmd.Flags().IntVar(&n, "N", 0, "corpus document count, used by the shortener's frequency heuristic")
	cmd.Flags().BoolVar(&enableTelemetry, "telemetry", false, "record per-query diagnostics to <indexStem>.telemetry.db")
	cmd.Flags().BoolVar(&watchIndex, "watch", false, "reload the index when an external builder replaces its files")
	cmd.Flags().DurationVar(&watchDebounce, "watch-debounce", 2*time.Second, "quiet period after a file change before reloading")

	return cmd
}
