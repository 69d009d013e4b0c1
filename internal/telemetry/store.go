package telemetry

import (
	"database/sql"
	"fmt"
	"time"
)

// Backend selects the SQLite driver used to persist query events,
// mirroring the store package's pure-Go-vs-cgo split: modernc.org's
// driver needs no C toolchain and is the default; mattn's cgo driver
// is opt-in for callers that already pay the cgo cost elsewhere.
type Backend string

const (
	BackendPureGo Backend = "modernc"
	BackendCgo    Backend = "mattn"
)

// DetectBackend picks mattn's driver only if the binary was built with
// it registered (see driver_cgo.go); otherwise it falls back to the
// pure-Go driver so a default build always has a working store.
func DetectBackend() Backend {
	if cgoDriverRegistered {
		return BackendCgo
	}
	return BackendPureGo
}

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS query_events (
	id TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	term_ids TEXT NOT NULL,
	distinct_before INTEGER NOT NULL,
	distinct_after INTEGER NOT NULL,
	shortening_codes INTEGER NOT NULL,
	postings_processed INTEGER NOT NULL,
	cutoff_reason TEXT NOT NULL,
	touched_count INTEGER NOT NULL,
	result_count INTEGER NOT NULL,
	latency_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_events_timestamp ON query_events(timestamp);
`

// Store persists QueryEvents to a SQLite database, driver chosen by
// Backend at construction time.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if absent) a SQLite database at path using
// the given backend's driver.
func OpenStore(path string, backend Backend) (*Store, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}

	return &Store{db: db}, nil
}

func driverFor(backend Backend) (string, error) {
	switch backend {
	case BackendCgo:
		if !cgoDriverRegistered {
			return "", fmt.Errorf("telemetry: cgo sqlite backend requested but not built in")
		}
		return "sqlite3", nil
	case BackendPureGo, "":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("telemetry: unknown backend %q", backend)
	}
}

// StorePath returns the default telemetry database path alongside the
// index files, following the vocab/postings naming convention.
func StorePath(indexStem string) string {
	return indexStem + ".telemetry.db"
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one query event.
func (s *Store) Save(e QueryEvent) error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("save query event: timestamp required")
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO query_events
			(id, timestamp, term_ids, distinct_before, distinct_after, shortening_codes,
			 postings_processed, cutoff_reason, touched_count, result_count, latency_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixNano(), encodeTermIDs(e.TermIDs), e.DistinctTermsBefore, e.DistinctTermsAfter,
		e.ShorteningCodes, e.PostingsProcessed, e.CutoffReason, e.TouchedCount, e.ResultCount, e.Latency.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("save query event: %w", err)
	}
	return nil
}

// Recent returns up to limit of the most recently saved events,
// newest first.
func (s *Store) Recent(limit int) ([]QueryEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, timestamp, term_ids, distinct_before, distinct_after, shortening_codes,
				postings_processed, cutoff_reason, touched_count, result_count, latency_ns
		 FROM query_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []QueryEvent
	for rows.Next() {
		var e QueryEvent
		var tsNano, latencyNano int64
		var termIDs string
		if err := rows.Scan(&e.ID, &tsNano, &termIDs, &e.DistinctTermsBefore, &e.DistinctTermsAfter,
			&e.ShorteningCodes, &e.PostingsProcessed, &e.CutoffReason, &e.TouchedCount, &e.ResultCount, &latencyNano); err != nil {
			return nil, fmt.Errorf("scan query event: %w", err)
		}
		e.Timestamp = time.Unix(0, tsNano)
		e.Latency = time.Duration(latencyNano)
		e.TermIDs = decodeTermIDs(termIDs)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CutoffReasonCounts aggregates Recent(limit) events by cutoff reason,
// used by the stats TUI to show why queries stopped early.
func (s *Store) CutoffReasonCounts(limit int) (map[string]int64, error) {
	rows, err := s.db.Query(
		`SELECT cutoff_reason, COUNT(*) FROM (
			SELECT cutoff_reason FROM query_events ORDER BY timestamp DESC LIMIT ?
		 ) GROUP BY cutoff_reason`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cutoff counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("scan cutoff count: %w", err)
		}
		counts[reason] = count
	}
	return counts, rows.Err()
}
