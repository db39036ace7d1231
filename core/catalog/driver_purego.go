//go:build !cgo_sqlite

// Pure Go SQLite driver, the default build mode.
package catalog

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName = "sqlite"
	driverType = "purego"
)
