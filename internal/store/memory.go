package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/filestate"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type inMemoryKV struct {
	entries  map[string]memoryEntry
	mu       sync.RWMutex
	snapshot filestate.Manager // nil when persistence is off
	now      func() time.Time
}

// NewInMemoryKV returns a map-backed store. When snapshot is non-nil the
// store is seeded from it and written back on PurgeExpired and Close.
func NewInMemoryKV(snapshot filestate.Manager) (KV, error) {
	return newInMemoryKV(snapshot, time.Now)
}

func newInMemoryKV(snapshot filestate.Manager, now func() time.Time) (*inMemoryKV, error) {
	s := &inMemoryKV{
		entries:  make(map[string]memoryEntry),
		snapshot: snapshot,
		now:      now,
	}
	if snapshot == nil {
		return s, nil
	}

	loaded, err := snapshot.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	current := now()
	for key, e := range loaded {
		entry := memoryEntry{value: e.Value, expiresAt: e.ExpiresAt}
		if entry.expired(current) {
			continue
		}
		s.entries[key] = entry
	}
	log.Info().Int("entries", len(s.entries)).Str("file", snapshot.GetSnapshotPath()).Msg("Restored KV snapshot")
	return s, nil
}

func (s *inMemoryKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: stored, expiresAt: expiryFor(s.now(), ttl)}
	return nil
}

func (s *inMemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *inMemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *inMemoryKV) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *inMemoryKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	keys := make([]string, 0)
	for key, entry := range s.entries {
		if strings.HasPrefix(key, prefix) && !entry.expired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *inMemoryKV) PurgeExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *inMemoryKV) Close() error {
	return s.persist()
}

func (s *inMemoryKV) persist() error {
	if s.snapshot == nil {
		return nil
	}
	s.mu.RLock()
	snap := make(filestate.Snapshot, len(s.entries))
	for key, entry := range s.entries {
		snap[key] = filestate.Entry{Value: entry.value, ExpiresAt: entry.expiresAt}
	}
	s.mu.RUnlock()
	return s.snapshot.SaveSnapshot(snap)
}
