package model

import (
	"time"

	"github.com/google/uuid"
)

// Session holds everything one dashboard user has loaded: the dataset, the
// chart list and the chat log. It lives from dataset load until cleared.
type Session struct {
	ID        string      `json:"id"`
	Dataset   *Dataset    `json:"dataset"`
	Charts    []ChartSpec `json:"charts"`
	Messages  []Message   `json:"messages"`
	APIKey    string      `json:"apiKey,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func NewSession(dataset *Dataset) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Charts:    []ChartSpec{},
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) ChartIndex(id string) int {
	for i, c := range s.Charts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
