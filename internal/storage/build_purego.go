//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Default build. Pure Go SQLite with FTS5; vector distance is computed in Go
// over the stored BLOBs.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite"

	// VectorExtensionAvailable enables SQL-side cosine distance
	VectorExtensionAvailable = false

	// BuildMode is reported by get_status
	BuildMode = "purego"
)
