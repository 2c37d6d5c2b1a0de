// Package state persists workspace partitions in a local SQLite file.
//
// Each partition key maps to one JSON record holding the tab list and the
// active tab id. The package knows nothing about the record's shape; it
// implements core.PartitionStore and leaves decoding to the workspace layer.
package state

import (
	"time"

	"github.com/shaped-ai/playground/pkg/core"
)

// Compile-time check.
var _ core.PartitionStore = (*SQLiteStore)(nil)

// PartitionInfo describes one stored partition.
type PartitionInfo struct {
	Key       string
	Bytes     int
	UpdatedAt time.Time
}
