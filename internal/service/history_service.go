package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/repository"
)

var (
	ErrMissingTimeRange = errors.New("startTime and endTime are required")
	ErrInvalidTimeRange = errors.New("endTime cannot be before startTime")
)

type HistoryService interface {
	SearchAnswers(ctx context.Context, req dto.HistorySearchRequest) (*dto.HistorySearchResponse, error)
}

type historyService struct {
	historyRepo repository.HistoryRepository
}

func NewHistoryService(historyRepo repository.HistoryRepository) HistoryService {
	return &historyService{
		historyRepo: historyRepo,
	}
}

func (s *historyService) SearchAnswers(ctx context.Context, req dto.HistorySearchRequest) (*dto.HistorySearchResponse, error) {
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, ErrMissingTimeRange
	}
	if req.EndTime.Before(req.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 1000 {
		req.Size = 50
	}
	if req.SortBy == "" {
		req.SortBy = "@timestamp"
	}
	req.SortOrder = strings.ToLower(req.SortOrder)
	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		req.SortOrder = "desc"
	}
	for i, source := range req.Sources {
		req.Sources[i] = strings.ToLower(source)
	}

	log.Info().
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Str("query", req.Query).
		Str("session_id", req.SessionID).
		Strs("sources", req.Sources).
		Int("page", req.Page).
		Int("size", req.Size).
		Msg("Searching answer history")

	return s.historyRepo.Search(ctx, req)
}
