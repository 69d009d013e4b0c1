//go:build !qbashq_cgo_sqlite

package telemetry

import (
	_ "modernc.org/sqlite"
)

const cgoDriverRegistered = false
