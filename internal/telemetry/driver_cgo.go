//go:build qbashq_cgo_sqlite

package telemetry

import (
	_ "github.com/mattn/go-sqlite3"
)

const cgoDriverRegistered = true
