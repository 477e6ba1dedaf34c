//go:build sqlite_vec
// +build sqlite_vec

package storage

// Compiled with CGO and the sqlite_vec tag. The sqlite-vec extension must be
// registered as an auto extension so vec_distance_cosine is available; when
// it is not, NearestJobs falls back to ranking in Go.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite3"

	// VectorExtensionAvailable enables SQL-side cosine distance
	VectorExtensionAvailable = true

	// BuildMode is reported by get_status
	BuildMode = "cgo"
)
