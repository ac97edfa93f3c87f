package dto

import (
	"time"

	"edgeinsight-backend/internal/model"
)

type HistorySearchRequest struct {
	StartTime   time.Time
	EndTime     time.Time
	Query       string
	SessionID   string
	DatasetName string
	Sources     []string
	SortBy      string
	SortOrder   string
	Page        int
	Size        int
}

type HistorySearchResponse struct {
	Answers    []model.ArchivedAnswer `json:"answers"`
	TotalCount int64                  `json:"totalCount"`
	Page       int                    `json:"page"`
	Size       int                    `json:"size"`
}
