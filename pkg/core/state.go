package core

// PartitionStore persists one serialized workspace record per partition key.
// Implementations are synchronous; a missing key is not an error.
type PartitionStore interface {
	// Load returns the record stored under key, or nil when none exists.
	Load(key string) ([]byte, error)
	// Save replaces the record stored under key.
	Save(key string, record []byte) error
	// Delete removes the record stored under key. Deleting a missing key is a no-op.
	Delete(key string) error
	// Keys lists the partition keys that currently hold a record.
	Keys() ([]string, error)
}
