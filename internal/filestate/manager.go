// Package filestate persists key/value snapshots to a JSON file so the
// in-memory store survives restarts.
package filestate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Entry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type Snapshot map[string]Entry

type Manager interface {
	LoadSnapshot() (Snapshot, error)
	SaveSnapshot(snapshot Snapshot) error
	GetSnapshotPath() string
}

type fileStateManager struct {
	filePath string
	mu       sync.RWMutex
}

func NewManager(filePath string) Manager {
	return &fileStateManager{
		filePath: filePath,
	}
}

func (m *fileStateManager) LoadSnapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", m.filePath).Msg("Snapshot file not found, starting fresh.")
			return make(Snapshot), nil
		}
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to read snapshot file")
		return nil, err
	}

	if len(data) == 0 {
		log.Warn().Str("file", m.filePath).Msg("Snapshot file is empty, starting fresh.")
		return make(Snapshot), nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal snapshot file")
		return nil, err
	}
	if snapshot == nil {
		snapshot = make(Snapshot)
	}

	log.Debug().Str("file", m.filePath).Int("entries", len(snapshot)).Msg("Loaded snapshot")
	return snapshot, nil
}

// SaveSnapshot writes to a temp file and renames it over the target.
func (m *fileStateManager) SaveSnapshot(snapshot Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return err
	}

	if dir := filepath.Dir(m.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Failed to create snapshot directory")
			return err
		}
	}

	tempFilePath := m.filePath + ".tmp"
	err = os.WriteFile(tempFilePath, data, 0644)
	if err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary snapshot file")
		return err
	}

	err = os.Rename(tempFilePath, m.filePath)
	if err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", m.filePath).Msg("Failed to rename snapshot file")
		// Attempt cleanup
		_ = os.Remove(tempFilePath)
		return err
	}
	log.Debug().Str("file", m.filePath).Int("entries", len(snapshot)).Msg("Saved snapshot")
	return nil
}

func (m *fileStateManager) GetSnapshotPath() string {
	return m.filePath
}
