package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/qrscan/internal/db"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
)

// KVStore keeps key-value entries in the kv table.  Reads go straight to the
// pool; writes are funnelled through the shared writer.
type KVStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    func() time.Time
}

func NewKVStore(db *sql.DB, writer *dbpkg.Worker) *KVStore {
	return &KVStore{db: db, writer: writer, now: time.Now}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, store.ErrNotFound
	}

	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, nil
}

// Put upserts the value and bumps the per-key write counter.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("kv put: empty key")
	}
	if value == nil {
		value = []byte{}
	}
	nowMs := s.now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv(key, value, updated_at_ms, writes)
VALUES (?, ?, ?, 1)
ON CONFLICT(key) DO UPDATE SET
  value = excluded.value,
  updated_at_ms = excluded.updated_at_ms,
  writes = kv.writes + 1;
`, key, value, nowMs); err != nil {
			return fmt.Errorf("kv put %s: %w", key, err)
		}
		return nil
	})
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?;`, key); err != nil {
			return fmt.Errorf("kv delete %s: %w", key, err)
		}
		return nil
	})
}

// KeyStats describes one kv row for `qrscan status`.
type KeyStats struct {
	Key       string
	Bytes     int
	Writes    int64
	UpdatedAt time.Time
}

func (s *KVStore) Stats(ctx context.Context) ([]KeyStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key, length(value), writes, updated_at_ms
FROM kv ORDER BY key;`)
	if err != nil {
		return nil, fmt.Errorf("kv stats: %w", err)
	}
	defer rows.Close()

	var out []KeyStats
	for rows.Next() {
		var (
			ks        KeyStats
			updatedMs int64
		)
		if err := rows.Scan(&ks.Key, &ks.Bytes, &ks.Writes, &updatedMs); err != nil {
			return nil, fmt.Errorf("kv stats scan: %w", err)
		}
		ks.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		out = append(out, ks)
	}
	return out, rows.Err()
}
