package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/store"
)

var ErrMissingSessionID = errors.New("缺少sessionId")

// KVService is the raw per-session data store behind /api/kv.
type KVService interface {
	Store(ctx context.Context, sessionID string, data []byte) (string, error)
	// Load returns nil when nothing is stored.
	Load(ctx context.Context, sessionID string) (*dto.StoredData, error)
	Delete(ctx context.Context, sessionID string) error
}

type kvService struct {
	kv  store.KV
	ttl store.TTLPolicy
	now func() time.Time
}

func NewKVService(kv store.KV, ttl store.TTLPolicy) KVService {
	return &kvService{kv: kv, ttl: ttl, now: time.Now}
}

func dataKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSessionID
	}
	return store.PrefixData + sessionID, nil
}

func (s *kvService) Store(ctx context.Context, sessionID string, data []byte) (string, error) {
	key, err := dataKey(sessionID)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		data = []byte("null")
	}
	stored := dto.StoredData{Data: data, CreatedAt: s.now().UnixMilli()}
	if err := store.PutJSON(ctx, s.kv, key, stored, s.ttl.For(key)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to store session data")
		return "", err
	}
	return key, nil
}

func (s *kvService) Load(ctx context.Context, sessionID string) (*dto.StoredData, error) {
	key, err := dataKey(sessionID)
	if err != nil {
		return nil, err
	}
	var stored dto.StoredData
	if err := store.GetJSON(ctx, s.kv, key, &stored); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stored, nil
}

func (s *kvService) Delete(ctx context.Context, sessionID string) error {
	key, err := dataKey(sessionID)
	if err != nil {
		return err
	}
	return s.kv.Delete(ctx, key)
}
