// Package telemetry records per-query diagnostics for the SAAT
// evaluator: which terms were queried, how shortening rewrote them,
// how many postings were consumed, why the SAAT loop stopped, and how
// long it took. All data stays local — this is operator diagnostics,
// not external reporting.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// LatencyBucket buckets query latency for histogram reporting.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one evaluated query's diagnostics.
type QueryEvent struct {
	ID        string
	Timestamp time.Time

	TermIDs []uint32

	// DistinctTermsBefore/After record the query shortener's effect;
	// equal values mean shortening did not fire (or was disabled).
	DistinctTermsBefore int
	DistinctTermsAfter  int
	ShorteningCodes     uint8

	PostingsProcessed uint64
	CutoffReason      string
	TouchedCount      uint64
	ResultCount       int
	Latency           time.Duration
}

// NewQueryEvent stamps a new event with a fresh ID, using the
// evaluation's own measured latency and termids rather than
// recomputing anything already known to the caller.
func NewQueryEvent(termids []uint32, resultCount int, latency time.Duration) QueryEvent {
	return QueryEvent{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		TermIDs:     termids,
		ResultCount: resultCount,
		Latency:     latency,
	}
}

// IsZeroResult reports whether this query returned no ranked results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

func (e QueryEvent) Bucket() LatencyBucket {
	return LatencyToBucket(e.Latency)
}
