package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/store"
)

type TTLs struct {
	AIResponse time.Duration
}

// Seconds renders the TTLs the way the stats endpoint reports them.
func (t TTLs) Seconds() map[string]int64 {
	return map[string]int64{
		"AI_RESPONSE": int64(t.AIResponse / time.Second),
	}
}

type Stats struct {
	Enabled      bool             `json:"enabled"`
	HotQuestions int              `json:"hotQuestions"`
	TTL          map[string]int64 `json:"ttl"`
	Entries      int              `json:"entries"`
	Hits         uint64           `json:"hits"`
	Misses       uint64           `json:"misses"`
}

type AnalysisCache interface {
	// Get decodes the entry stored under key into v and reports a hit.
	Get(ctx context.Context, key string, v interface{}) (bool, error)
	Put(ctx context.Context, key string, v interface{}) error
	// Clear removes entries whose cache key contains pattern; an empty
	// pattern clears everything.
	Clear(ctx context.Context, pattern string) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

type envelope struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type kvAnalysisCache struct {
	kv      store.KV
	enabled bool
	ttl     TTLs
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func NewAnalysisCache(kv store.KV, cfg *config.Config) AnalysisCache {
	return &kvAnalysisCache{
		kv:      kv,
		enabled: cfg.Cache.Enabled,
		ttl:     TTLs{AIResponse: cfg.Cache.ResponseTTL},
	}
}

func storageKey(key string) string {
	return store.PrefixCache + SimpleHash(key)
}

func (c *kvAnalysisCache) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	var env envelope
	if err := store.GetJSON(ctx, c.kv, storageKey(key), &env); err != nil {
		c.misses.Add(1)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	// Different keys can share a hash.
	if env.Key != key {
		c.misses.Add(1)
		return false, nil
	}
	if err := json.Unmarshal(env.Value, v); err != nil {
		c.misses.Add(1)
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	c.hits.Add(1)
	log.Debug().Str("cache_key", key).Msg("Cache hit")
	return true, nil
}

func (c *kvAnalysisCache) Put(ctx context.Context, key string, v interface{}) error {
	if !c.enabled {
		return nil
	}
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return store.PutJSON(ctx, c.kv, storageKey(key), envelope{Key: key, Value: value}, c.ttl.AIResponse)
}

func (c *kvAnalysisCache) Clear(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		return c.kv.DeletePrefix(ctx, store.PrefixCache)
	}
	keys, err := c.kv.Keys(ctx, store.PrefixCache)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, k := range keys {
		var env envelope
		if err := store.GetJSON(ctx, c.kv, k, &env); err != nil {
			continue
		}
		if !strings.Contains(env.Key, pattern) {
			continue
		}
		if err := c.kv.Delete(ctx, k); err != nil {
			return cleared, err
		}
		cleared++
	}
	log.Info().Str("pattern", pattern).Int("cleared", cleared).Msg("Cleared cache entries")
	return cleared, nil
}

func (c *kvAnalysisCache) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.kv.Keys(ctx, store.PrefixCache)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Enabled:      c.enabled,
		HotQuestions: len(HotQuestions),
		TTL:          c.ttl.Seconds(),
		Entries:      len(keys),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
	}, nil
}
