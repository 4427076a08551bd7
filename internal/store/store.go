// Package store keeps notification state and cached event batches in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Persistent stores a value without expiry.
const Persistent time.Duration = 0

// ErrNotFound is returned by Fetch for missing or expired keys.
var ErrNotFound = errors.New("key not found")

type entry struct {
	bun.BaseModel `bun:"table:entries"`

	ID        string `bun:"id,pk"`
	Value     string `bun:"value,notnull"`
	ExpiresAt int64  `bun:"expires_at,notnull"` // unix seconds, 0 never expires
}

// Store is a key/value store with optional per-key expiry.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" gives a private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?mode=rwc"
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.NewCreateTable().Model((*entry)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// SetClock replaces the clock used for expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether key holds a value that has not expired.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.live(key).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// Fetch returns the value of key, or ErrNotFound.
func (s *Store) Fetch(ctx context.Context, key string) (string, error) {
	e := new(entry)
	if err := s.live(key).Model(e).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("fetch %s: %w", key, err)
	}
	return e.Value, nil
}

// Store sets key to value. A ttl of Persistent never expires; the last writer wins.
func (s *Store) Store(ctx context.Context, key, value string, ttl time.Duration) error {
	e := &entry{ID: key, Value: value}
	if ttl > Persistent {
		e.ExpiresAt = s.now().Add(ttl).Unix()
	}
	if _, err := s.db.NewInsert().
		Model(e).
		On("CONFLICT (id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Flush removes key.
func (s *Store) Flush(ctx context.Context, key string) error {
	if _, err := s.db.NewDelete().
		Model((*entry)(nil)).
		Where("id = ?", key).
		Exec(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", key, err)
	}
	return nil
}

func (s *Store) live(key string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*entry)(nil)).
		Where("id = ?", key).
		Where("(expires_at = 0 OR expires_at > ?)", s.now().Unix())
}
