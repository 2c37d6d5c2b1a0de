package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var errNotOpened = errors.New("database not opened")

// SQLiteStore implements core.PartitionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new, unopened store.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewSQLiteStoreWithDB wraps an existing connection. The schema is assumed
// to be in place.
func NewSQLiteStoreWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database, creating its parent
// directory when needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state database", "path", path)
	return nil
}

// OpenAndMigrate is Open followed by Migrate.
func OpenAndMigrate(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the record stored under key, or nil when there is none.
func (s *SQLiteStore) Load(key string) ([]byte, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	var record string
	err := s.db.QueryRow(
		`SELECT record FROM workspace_partitions WHERE partition_key = ?`,
		key,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load partition %s: %w", key, err)
	}
	return []byte(record), nil
}

// Save upserts the record under key.
func (s *SQLiteStore) Save(key string, record []byte) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.Exec(
		`INSERT INTO workspace_partitions (partition_key, record, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(partition_key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		key, string(record), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save partition %s: %w", key, err)
	}
	return nil
}

// Delete removes the record under key. Missing keys are not an error.
func (s *SQLiteStore) Delete(key string) error {
	if s.db == nil {
		return errNotOpened
	}

	if _, err := s.db.Exec(`DELETE FROM workspace_partitions WHERE partition_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete partition %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored partition key in sorted order.
func (s *SQLiteStore) Keys() ([]string, error) {
	infos, err := s.Partitions()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	return keys, nil
}

// Partitions lists every stored partition ordered by key.
func (s *SQLiteStore) Partitions() ([]PartitionInfo, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(
		`SELECT partition_key, length(record), updated_at FROM workspace_partitions ORDER BY partition_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []PartitionInfo
	for rows.Next() {
		var info PartitionInfo
		if err := rows.Scan(&info.Key, &info.Bytes, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	return infos, nil
}
