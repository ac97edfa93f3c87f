package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

type sqliteKV struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteKV opens (or creates) the database file at dbPath.
func NewSQLiteKV(dbPath string) (KV, error) {
	return newSQLiteKV(dbPath, time.Now)
}

func newSQLiteKV(dbPath string, now func() time.Time) (*sqliteKV, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("SQLite KV store opened")
	return &sqliteKV{db: db, now: now}, nil
}

func (s *sqliteKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	var expiresAt interface{}
	if exp := expiryFor(s.now(), ttl); !exp.IsZero() {
		expiresAt = exp.UnixNano()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite put %s failed: %w", key, err)
	}
	return nil
}

func (s *sqliteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		key, s.now().UnixNano()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get %s failed: %w", key, err)
	}
	return value, nil
}

func (s *sqliteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite delete %s failed: %w", key, err)
	}
	return nil
}

func (s *sqliteKV) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE instr(key, ?) = 1", prefix)
	if err != nil {
		return 0, fmt.Errorf("sqlite delete prefix %s failed: %w", prefix, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *sqliteKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_entries WHERE instr(key, ?) = 1
		AND (expires_at IS NULL OR expires_at > ?) ORDER BY key`, prefix, s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite keys %s failed: %w", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite keys %s scan failed: %w", prefix, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *sqliteKV) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *sqliteKV) Close() error {
	return s.db.Close()
}
