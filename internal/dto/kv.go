package dto

import (
	"encoding/json"

	"edgeinsight-backend/internal/model"
)

type KVStoreRequest struct {
	SessionID string          `json:"sessionId" binding:"required"`
	Data      json.RawMessage `json:"data"`
}

type KVStoreResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
}

// StoredData is the envelope kept under data:<sessionId>.
type StoredData struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
}

type KVGetResponse struct {
	Data *StoredData `json:"data"`
}

type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}

type CacheWarmupRequest struct {
	Dataset *model.DatasetInfo `json:"dataset" binding:"required"`
}

type CacheWarmupResponse struct {
	Queued int `json:"queued"`
}
