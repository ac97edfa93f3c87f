package dto

import (
	"time"

	"edgeinsight-backend/internal/model"
)

type AnalyzeRequest struct {
	Question string             `json:"question"`
	Dataset  *model.DatasetInfo `json:"dataset"`
}

type AnalyzeResponse struct {
	Answer    string            `json:"answer"`
	Insights  []string          `json:"insights"`
	Charts    []model.ChartSpec `json:"charts"`
	Timestamp time.Time         `json:"timestamp"`
}

// ChatMessage is one turn of a multi-turn conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatDataset is the dataset summary a chat request may carry.
type ChatDataset struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Dataset  *ChatDataset  `json:"dataset,omitempty"`
}

type ChatResponse struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type EdgeInfo struct {
	Colo    string `json:"colo"`
	Country string `json:"country"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Edge      EdgeInfo  `json:"edge"`
	Version   string    `json:"version"`
}
