package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	standup "github.com/chimerakang/standup-go"
	_ "modernc.org/sqlite"
)

// SQLiteBackend stores each partition in its own table of a sqlite file.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("standup/cache: create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("standup/cache: open database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("standup/cache: %s: %w", pragma, err)
		}
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	for _, p := range standup.Partitions {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			timestamp INTEGER NOT NULL
		)`, table(p))
		if _, err := b.db.Exec(stmt); err != nil {
			return fmt.Errorf("standup/cache: migrate %s: %w", p, err)
		}
	}
	return nil
}

// table returns the table name for a known partition. Partition names are
// validated before they reach SQL.
func table(p standup.Partition) string { return "cache_" + string(p) }

func (b *SQLiteBackend) Load(ctx context.Context, p standup.Partition, key string) ([]byte, int64, bool, error) {
	if !p.Valid() {
		return nil, 0, false, fmt.Errorf("standup/cache: unknown partition %q", p)
	}
	var (
		data []byte
		ts   int64
	)
	err := b.db.QueryRowContext(ctx, "SELECT data, timestamp FROM "+table(p)+" WHERE key = ?", key).Scan(&data, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("standup/cache: load %s/%s: %w", p, key, err)
	}
	return data, ts, true, nil
}

func (b *SQLiteBackend) Store(ctx context.Context, p standup.Partition, key string, data []byte, timestamp int64) error {
	if !p.Valid() {
		return fmt.Errorf("standup/cache: unknown partition %q", p)
	}
	_, err := b.db.ExecContext(ctx,
		"INSERT INTO "+table(p)+" (key, data, timestamp) VALUES (?, ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET data = excluded.data, timestamp = excluded.timestamp",
		key, data, timestamp)
	if err != nil {
		return fmt.Errorf("standup/cache: store %s/%s: %w", p, key, err)
	}
	return nil
}

func (b *SQLiteBackend) Clear(ctx context.Context, partitions ...standup.Partition) error {
	for _, p := range partitions {
		if !p.Valid() {
			return fmt.Errorf("standup/cache: unknown partition %q", p)
		}
		if _, err := b.db.ExecContext(ctx, "DELETE FROM "+table(p)); err != nil {
			return fmt.Errorf("standup/cache: clear %s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error { return b.db.Close() }
