package dto

import (
	"time"

	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/model"
)

type PasteRequest struct {
	Text string `json:"text" binding:"required"`
}

type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type AskResponse struct {
	UserMessage      model.Message      `json:"userMessage"`
	AssistantMessage model.Message      `json:"assistantMessage"`
	Source           model.AnswerSource `json:"source"`
}

// SessionView is a session without its rows; rows are fetched per chart.
type SessionView struct {
	ID           string            `json:"id"`
	DatasetName  string            `json:"datasetName"`
	Columns      []string          `json:"columns"`
	RowCount     int               `json:"rowCount"`
	UploadTime   time.Time         `json:"uploadTime"`
	Charts       []model.ChartSpec `json:"charts"`
	MessageCount int               `json:"messageCount"`
	HasAPIKey    bool              `json:"hasApiKey"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func NewSessionView(s *model.Session) SessionView {
	view := SessionView{
		ID:           s.ID,
		Charts:       s.Charts,
		MessageCount: len(s.Messages),
		HasAPIKey:    s.APIKey != "",
		CreatedAt:    s.CreatedAt,
	}
	if s.Dataset != nil {
		view.DatasetName = s.Dataset.Name
		view.Columns = s.Dataset.Columns
		view.RowCount = s.Dataset.RowCount()
		view.UploadTime = s.Dataset.UploadTime
	}
	return view
}

type ChartCreateRequest struct {
	Type        model.ChartType   `json:"type" binding:"required"`
	Title       string            `json:"title"`
	XField      string            `json:"xField"`
	YField      string            `json:"yField"`
	SeriesField string            `json:"seriesField,omitempty"`
	Aggregation model.Aggregation `json:"aggregation"`
}

type ColumnsResponse struct {
	Columns     []analysis.Column `json:"columns"`
	Numeric     []string          `json:"numeric"`
	Categorical []string          `json:"categorical"`
	Dates       []string          `json:"dates"`
}

type ColumnStatsResponse struct {
	Column       string         `json:"column"`
	Stats        analysis.Stats `json:"stats"`
	UniqueValues []model.Value  `json:"uniqueValues,omitempty"`
}

type CorrelationResponse struct {
	ColumnA     string  `json:"columnA"`
	ColumnB     string  `json:"columnB"`
	Correlation float64 `json:"correlation"`
}
