// Package mcpsrv exposes the SAAT query evaluator as an MCP tool, so an
// AI assistant can drive impact-ordered queries the same way the
// teacher exposes its hybrid search tools over the same SDK.
package mcpsrv

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qbasher/qbashq/internal/engine"
	"github.com/qbasher/qbashq/internal/telemetry"
	"github.com/qbasher/qbashq/pkg/version"
)

// Server is the MCP server for qbashq. It bridges AI clients with a
// single evaluator instance opened over one index.
type Server struct {
	mcp    *mcp.Server
	ev     *engine.Evaluator
	logger *slog.Logger

	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// SearchInput defines the input schema for the search_termids tool.
type SearchInput struct {
	TermIDs []uint32 `json:"term_ids" jsonschema:"query term ids to evaluate, already resolved via the term command"`
}

// SearchOutput defines the output schema for the search_termids tool.
type SearchOutput struct {
	Results           []ResultOutput `json:"results" jsonschema:"ranked documents, highest score first"`
	PostingsProcessed uint64         `json:"postings_processed" jsonschema:"number of postings consumed before the main loop stopped"`
	CutoffReason      string         `json:"cutoff_reason" jsonschema:"why the main loop stopped: all_exhausted, low_score, postings_budget, or none"`
	TouchedCount      uint64         `json:"touched_count" jsonschema:"number of distinct documents touched during traversal"`
}

// ResultOutput is a single ranked document.
type ResultOutput struct {
	Rank  int    `json:"rank"`
	DocID uint64 `json:"doc_id"`
	Score uint64 `json:"score"`
}

// NewServer creates a new MCP server wrapping ev. ev must already be
// open; the server does not own its lifecycle.
func NewServer(ev *engine.Evaluator) (*Server, error) {
	if ev == nil {
		return nil, fmt.Errorf("evaluator is required")
	}

	s := &Server{
		ev:     ev,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "qbashq",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// SetMetrics sets the query metrics collector for telemetry. When set,
// every search_termids call is also recorded to the telemetry store.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_termids",
		Description: "Evaluates a score-at-a-time query over the impact-ordered inverted index and returns the top-k ranked documents. Input is a list of already-resolved term ids, not raw query text.",
	}, s.searchHandler)
	s.logger.Debug("registered MCP tool", slog.String("name", "search_termids"))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if len(input.TermIDs) == 0 {
		return nil, SearchOutput{}, fmt.Errorf("term_ids parameter is required and must be non-empty")
	}

	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	start := time.Now()
	res, err := s.ev.ProcessQuery(input.TermIDs)
	latency := time.Since(start)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:           make([]ResultOutput, 0, len(res.Ranking)),
		PostingsProcessed: res.PostingsProcessed,
		CutoffReason:      res.CutoffReason.String(),
		TouchedCount:      res.TouchedCount,
	}
	for _, r := range res.Ranking {
		output.Results = append(output.Results, ResultOutput{Rank: r.Rank, DocID: r.DocID, Score: r.Score})
	}

	if metrics != nil {
		event := telemetry.NewQueryEvent(input.TermIDs, len(res.Ranking), latency)
		distinct := distinctTermIDCount(input.TermIDs)
		event.DistinctTermsBefore = distinct
		event.DistinctTermsAfter = distinct
		event.PostingsProcessed = res.PostingsProcessed
		event.CutoffReason = res.CutoffReason.String()
		event.TouchedCount = res.TouchedCount
		if err := metrics.Record(event); err != nil {
			s.logger.Warn("failed to record telemetry", slog.String("error", err.Error()))
		}
	}

	return nil, output, nil
}

func distinctTermIDCount(termids []uint32) int {
	seen := make(map[uint32]struct{}, len(termids))
	for _, t := range termids {
		seen[t] = struct{}{}
	}
	return len(seen)
}

// Serve starts the server with the specified transport. Only stdio is
// supported, matching the single-operator usage this tool is built for.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The evaluator is owned by the
// caller and is not closed here.
func (s *Server) Close() error {
	return nil
}
