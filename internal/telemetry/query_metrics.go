// Package telemetry provides query pattern telemetry for search
// optimization. All telemetry data is stored locally - no external
// reporting.
package telemetry

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int // Current number of items
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// =============================================================================
// Term ID Count
// =============================================================================

// TermIDCount pairs a termid with its query frequency.
type TermIDCount struct {
	TermID uint32 `json:"term_id"`
	Count  int64  `json:"count"`
}

// =============================================================================
// Query Metrics Snapshot
// =============================================================================

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	TopTermIDs          []TermIDCount            `json:"top_term_ids"`
	ZeroResultQueries   []QueryEvent             `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64  `json:"latency_distribution"`
	CutoffReasonCounts  map[string]int64         `json:"cutoff_reason_counts"`
	TotalQueries        int64                    `json:"total_queries"`
	ZeroResultCount     int64                    `json:"zero_result_count"`
	ShorteningFiredCount int64                   `json:"shortening_fired_count"`
	Since               time.Time                `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// ShorteningFiredPercentage returns the percentage of queries the
// shortener actually rewrote.
func (s *QueryMetricsSnapshot) ShorteningFiredPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ShorteningFiredCount) / float64(s.TotalQueries) * 100
}

// =============================================================================
// Query Metrics Configuration
// =============================================================================

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity    int // Max distinct termids to track (default: 100)
	ZeroResultsCapacity int // Max zero-result queries to retain (default: 100)
}

// DefaultQueryMetricsConfig returns sensible defaults.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
	}
}

// =============================================================================
// Query Metrics
// =============================================================================

// QueryMetrics collects query telemetry for search optimization.
// Thread-safe for concurrent access.
type QueryMetrics struct {
	mu sync.RWMutex

	topTermIDs      *lru.Cache[uint32, int64]
	zeroResults     *CircularBuffer[QueryEvent]
	latencies       map[LatencyBucket]int64
	cutoffReasons   map[string]int64
	totalQueries    int64
	zeroResultCount int64
	shorteningFired int64
	startTime       time.Time

	store  *Store // optional; nil means in-memory only
	config QueryMetricsConfig
	closed bool
}

// NewQueryMetrics creates a new metrics collector with default
// configuration. If store is nil, metrics are only kept in memory.
func NewQueryMetrics(store *Store) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a new metrics collector with custom configuration.
func NewQueryMetricsWithConfig(store *Store, cfg QueryMetricsConfig) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}

	topTermIDs, _ := lru.New[uint32, int64](cfg.TopTermsCapacity)

	return &QueryMetrics{
		topTermIDs:    topTermIDs,
		zeroResults:   NewCircularBuffer[QueryEvent](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		cutoffReasons: make(map[string]int64),
		startTime:     time.Now(),
		store:         store,
		config:        cfg,
	}
}

// Record captures metrics from one evaluated query and, if a store is
// configured, persists the event immediately. This method is
// thread-safe.
func (m *QueryMetrics) Record(event QueryEvent) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	m.totalQueries++

	for _, termid := range event.TermIDs {
		count, _ := m.topTermIDs.Get(termid)
		m.topTermIDs.Add(termid, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event)
		m.zeroResultCount++
	}

	if event.DistinctTermsAfter < event.DistinctTermsBefore {
		m.shorteningFired++
	}

	m.latencies[event.Bucket()]++
	m.cutoffReasons[event.CutoffReason]++
	m.mu.Unlock()

	if m.store != nil {
		return m.store.Save(event)
	}
	return nil
}

// Snapshot returns current metrics for reporting.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var topTermIDs []TermIDCount
	for _, termid := range m.topTermIDs.Keys() {
		if count, ok := m.topTermIDs.Peek(termid); ok {
			topTermIDs = append(topTermIDs, TermIDCount{TermID: termid, Count: count})
		}
	}
	for i := 0; i < len(topTermIDs); i++ {
		for j := i + 1; j < len(topTermIDs); j++ {
			if topTermIDs[j].Count > topTermIDs[i].Count {
				topTermIDs[i], topTermIDs[j] = topTermIDs[j], topTermIDs[i]
			}
		}
	}

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	cutoffs := make(map[string]int64, len(m.cutoffReasons))
	for k, v := range m.cutoffReasons {
		cutoffs[k] = v
	}

	return &QueryMetricsSnapshot{
		TopTermIDs:           topTermIDs,
		ZeroResultQueries:    m.zeroResults.Items(),
		LatencyDistribution:  latencies,
		CutoffReasonCounts:   cutoffs,
		TotalQueries:         m.totalQueries,
		ZeroResultCount:      m.zeroResultCount,
		ShorteningFiredCount: m.shorteningFired,
		Since:                m.startTime,
	}
}

// Close releases resources. The underlying store, if any, is closed
// by its owner, not here — QueryMetrics does not own the store's
// lifecycle since callers may share it with other readers (e.g. the
// stats TUI polling concurrently).
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
