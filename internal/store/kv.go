// Package store holds the key/value persistence used for sessions, analysis
// results and the response cache. Every entry carries an optional TTL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrEmptyKey    = errors.New("key must not be empty")
	ErrUnknownKind = errors.New("unknown kv backend")
)

// Key prefixes partition the keyspace by what is stored.
const (
	PrefixData     = "data:"
	PrefixAnalysis = "analysis:"
	PrefixReport   = "report:"
	PrefixCache    = "cache:"
	PrefixSession  = "session:"
)

// KV is a string-keyed byte store with per-entry expiry. A ttl <= 0 stores
// the entry without expiry. Expired entries are never returned by Get even
// before PurgeExpired removes them.
type KV interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	PurgeExpired(ctx context.Context) (int, error)
	Close() error
}

// TTLPolicy maps key prefixes to their default lifetime.
type TTLPolicy struct {
	Data     time.Duration
	Analysis time.Duration
	Report   time.Duration
	Cache    time.Duration
	Default  time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Data:     time.Hour,
		Analysis: 30 * time.Minute,
		Report:   2 * time.Hour,
		Cache:    5 * time.Minute,
		Default:  time.Hour,
	}
}

func (p TTLPolicy) For(key string) time.Duration {
	switch {
	case strings.HasPrefix(key, PrefixData), strings.HasPrefix(key, PrefixSession):
		return p.Data
	case strings.HasPrefix(key, PrefixAnalysis):
		return p.Analysis
	case strings.HasPrefix(key, PrefixReport):
		return p.Report
	case strings.HasPrefix(key, PrefixCache):
		return p.Cache
	default:
		return p.Default
	}
}

// PutJSON marshals v and stores it under key.
func PutJSON(ctx context.Context, kv KV, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}
	return kv.Put(ctx, key, data, ttl)
}

// GetJSON loads key into v. ErrNotFound is returned unwrapped.
func GetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal value for %s: %w", key, err)
	}
	return nil
}

func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// likePrefix escapes LIKE wildcards in prefix and appends %.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
