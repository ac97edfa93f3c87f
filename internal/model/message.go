package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Insights  []string    `json:"insights,omitempty"`
	Charts    []ChartSpec `json:"charts,omitempty"`
}

func NewMessage(role Role, content string) Message {
	prefix := "user"
	if role == RoleAssistant {
		prefix = "ai"
	}
	return Message{
		ID:        fmt.Sprintf("%s-%s", prefix, uuid.NewString()),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
