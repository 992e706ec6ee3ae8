package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const snapshotsSchema = `
CREATE TABLE IF NOT EXISTS crudkit_snapshots (
	area        TEXT NOT NULL,
	key         TEXT NOT NULL,
	data        BLOB NOT NULL,
	snapshot_id TEXT NOT NULL,
	etag        TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (area, key)
)`

// SQLiteStorage keeps snapshots in one table of a SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and prepares the
// snapshot table.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma: %w", err)
		}
	}

	s := NewSQLiteStorageFromDB(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStorageFromDB wraps an existing connection. Call Migrate before
// use.
func NewSQLiteStorageFromDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, snapshotsSchema); err != nil {
		return fmt.Errorf("store: create snapshot table: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }

func (s *SQLiteStorage) Load(ctx context.Context, ref Ref) ([]byte, Meta, bool, error) {
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, false, err
	}

	var (
		data    []byte
		meta    Meta
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, snapshot_id, etag, updated_at FROM crudkit_snapshots WHERE area = ? AND key = ?`,
		string(ref.Area), ref.Key,
	).Scan(&data, &meta.SnapshotID, &meta.ETag, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("store: load %s/%s: %w", ref.Area, ref.Key, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		meta.UpdatedAt = t
	}
	return data, meta, true, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, ref Ref, data []byte, meta Meta) (Meta, error) {
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	saved := stamp(meta, data, time.Now())
	if saved.SnapshotID == "" {
		saved.SnapshotID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crudkit_snapshots (area, key, data, snapshot_id, etag, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (area, key) DO UPDATE SET
			data = excluded.data,
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			updated_at = excluded.updated_at`,
		string(ref.Area), ref.Key, data, saved.SnapshotID, saved.ETag, saved.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Meta{}, fmt.Errorf("store: save %s/%s: %w", ref.Area, ref.Key, err)
	}
	return saved, nil
}
