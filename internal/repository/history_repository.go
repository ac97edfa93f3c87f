package repository

import (
	"context"

	"edgeinsight-backend/internal/dto"
)

type HistoryRepository interface {
	Search(ctx context.Context, req dto.HistorySearchRequest) (*dto.HistorySearchResponse, error)
}
