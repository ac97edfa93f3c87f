package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const kvTableName = "kv_entries"

type postgresKV struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresKV connects, pings and ensures the entries table exists.
func NewPostgresKV(ctx context.Context, dsn string) (KV, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse Postgres DSN")
		return nil, fmt.Errorf("invalid Postgres DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to Postgres")
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping Postgres")
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}
	log.Info().Msg("Postgres connection pool created and verified.")

	s := &postgresKV{pool: pool, tableName: kvTableName}

	setupCtx, cancelSetup := context.WithTimeout(ctx, 30*time.Second)
	defer cancelSetup()
	if err := s.ensureTable(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure KV table exists")
		return nil, fmt.Errorf("failed ensuring kv table: %w", err)
	}
	return s, nil
}

func (s *postgresKV) ensureTable(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			expires_at TIMESTAMPTZ
		);`, s.tableName)
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.tableName, err)
	}
	log.Info().Str("table", s.tableName).Msg("Ensured KV table exists.")

	indexSQL := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_expires_at ON %s (expires_at) WHERE expires_at IS NOT NULL;",
		s.tableName, s.tableName)
	if _, err := s.pool.Exec(ctx, indexSQL); err != nil {
		log.Warn().Err(err).Msg("Failed to create expiry index on KV table (continuing)")
	}
	return nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *postgresKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, key, value, nullableTime(expiryFor(time.Now(), ttl))); err != nil {
		return fmt.Errorf("postgres put %s failed: %w", key, err)
	}
	return nil
}

func (s *postgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(
		"SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())", s.tableName)
	var value []byte
	if err := s.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres get %s failed: %w", key, err)
	}
	return value, nil
}

func (s *postgresKV) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgres delete %s failed: %w", key, err)
	}
	return nil
}

func (s *postgresKV) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key LIKE $1 ESCAPE '\'`, s.tableName)
	tag, err := s.pool.Exec(ctx, query, likePrefix(prefix))
	if err != nil {
		return 0, fmt.Errorf("postgres delete prefix %s failed: %w", prefix, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *postgresKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE key LIKE $1 ESCAPE '\'
		AND (expires_at IS NULL OR expires_at > now()) ORDER BY key`, s.tableName)
	rows, err := s.pool.Query(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("postgres keys %s failed: %w", prefix, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres keys %s scan failed: %w", prefix, err)
	}
	return keys, nil
}

func (s *postgresKV) PurgeExpired(ctx context.Context) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= now()", s.tableName)
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("postgres purge failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *postgresKV) Close() error {
	s.pool.Close()
	return nil
}
