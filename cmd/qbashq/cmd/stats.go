package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/qbasher/qbashq/internal/telemetry"
	"github.com/qbasher/qbashq/internal/ui"
)

// newStatsCmd renders a live rolling view of recent query latencies
// and cutoff reasons from the telemetry store, as a bubbletea TUI when
// stdout is a terminal, or otherwise as a plain text dump printed once,
// without refreshing.
func newStatsCmd() *cobra.Command {
	var indexStem string
	var refresh time.Duration
	var recentLimit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recent query telemetry (latency, cutoff reasons)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexStem == "" {
				return fmt.Errorf("indexStem is required")
			}

			store, err := telemetry.OpenStore(telemetry.StorePath(indexStem), telemetry.DetectBackend())
			if err != nil {
				return fmt.Errorf("open telemetry store: %w", err)
			}
			defer store.Close()

			if ui.IsTTY(cmd.OutOrStdout()) {
				return runStatsTUI(store, refresh, recentLimit)
			}
			return runStatsPlain(cmd, store, recentLimit)
		},
	}

	cmd.Flags().StringVar(&indexStem, "indexStem", "", "path prefix whose <indexStem>.telemetry.db is read (required)")
	cmd.Flags().DurationVar(&refresh, "refresh", time.Second, "TUI refresh interval")
	cmd.Flags().IntVar(&recentLimit, "limit", 50, "number of recent events to sample")

	return cmd
}

func runStatsPlain(cmd *cobra.Command, store *telemetry.Store, limit int) error {
	out := cmd.OutOrStdout()
	events, err := store.Recent(limit)
	if err != nil {
		return fmt.Errorf("read recent events: %w", err)
	}
	counts, err := store.CutoffReasonCounts(limit)
	if err != nil {
		return fmt.Errorf("read cutoff counts: %w", err)
	}

	fmt.Fprintf(out, "Recent queries: %d\n", len(events))
	for reason, count := range counts {
		fmt.Fprintf(out, "  %-16s %d\n", reason, count)
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s\tpostings=%d\tresults=%d\tcutoff=%s\tlatency=%s\n",
			e.Timestamp.Format(time.RFC3339), e.PostingsProcessed, e.ResultCount, e.CutoffReason, e.Latency)
	}
	return nil
}

// statsModel is the bubbletea model polling the telemetry store.
type statsModel struct {
	store   *telemetry.Store
	refresh time.Duration
	limit   int
	styles  ui.Styles

	events []telemetry.QueryEvent
	counts map[string]int64
	err    error
}

func runStatsTUI(store *telemetry.Store, refresh time.Duration, limit int) error {
	m := &statsModel{
		store:   store,
		refresh: refresh,
		limit:   limit,
		styles:  ui.GetStyles(ui.DetectNoColor()),
	}
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

type statsTickMsg time.Time
type statsDataMsg struct {
	events []telemetry.QueryEvent
	counts map[string]int64
	err    error
}

func (m *statsModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), statsTickCmd(m.refresh))
}

func statsTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return statsTickMsg(t) })
}

func (m *statsModel) poll() tea.Cmd {
	return func() tea.Msg {
		events, err := m.store.Recent(m.limit)
		if err != nil {
			return statsDataMsg{err: err}
		}
		counts, err := m.store.CutoffReasonCounts(m.limit)
		if err != nil {
			return statsDataMsg{err: err}
		}
		return statsDataMsg{events: events, counts: counts}
	}
}

func (m *statsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case statsTickMsg:
		return m, tea.Batch(m.poll(), statsTickCmd(m.refresh))
	case statsDataMsg:
		m.events = msg.events
		m.counts = msg.counts
		m.err = msg.err
	}
	return m, nil
}

func (m *statsModel) View() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("telemetry read error: %v", m.err)) + "\n"
	}

	var lines []string
	lines = append(lines, m.styles.Header.Render(fmt.Sprintf("qbashq stats — %d recent queries", len(m.events))))
	lines = append(lines, "")
	lines = append(lines, m.renderCutoffCounts())
	lines = append(lines, "")
	lines = append(lines, m.renderLatencyHistogram())
	lines = append(lines, "")
	lines = append(lines, m.styles.Dim.Render("q to quit"))

	content := strings.Join(lines, "\n")
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ui.ColorDarkGray)).
		Padding(0, 1)
	return panel.Render(content) + "\n"
}

func (m *statsModel) renderCutoffCounts() string {
	if len(m.counts) == 0 {
		return m.styles.Dim.Render("no cutoff data yet")
	}
	reasons := make([]string, 0, len(m.counts))
	for r := range m.counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	var b strings.Builder
	b.WriteString(m.styles.Label.Render("cutoff reasons:") + "\n")
	for _, r := range reasons {
		fmt.Fprintf(&b, "  %-16s %d\n", r, m.counts[r])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *statsModel) renderLatencyHistogram() string {
	if len(m.events) == 0 {
		return m.styles.Dim.Render("no query data yet")
	}
	buckets := make(map[telemetry.LatencyBucket]int)
	for _, e := range m.events {
		buckets[e.Bucket()]++
	}

	order := []telemetry.LatencyBucket{
		telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100,
		telemetry.BucketP500, telemetry.BucketP1000,
	}
	var b strings.Builder
	b.WriteString(m.styles.Label.Render("latency:") + "\n")
	for _, bucket := range order {
		count := buckets[bucket]
		bar := strings.Repeat("#", count)
		fmt.Fprintf(&b, "  %-6s %s %d\n", bucket, m.styles.Active.Render(bar), count)
	}
	return strings.TrimRight(b.String(), "\n")
}
