package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/model"
)

type fakeProducer struct {
	batches [][]model.ArchivedAnswer
	failAt  int // 1-based call that fails; 0 never
	calls   int
}

func (p *fakeProducer) Produce(ctx context.Context, answers []model.ArchivedAnswer) error {
	p.calls++
	if p.calls == p.failAt {
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, answers)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func archiveConfig(enabled bool, batch int) *config.Config {
	cfg := &config.Config{}
	cfg.Archive.Enabled = enabled
	cfg.Archive.BatchSize = batch
	return cfg
}

func answer(id string) model.ArchivedAnswer {
	return model.ArchivedAnswer{MessageID: id, SessionID: "s1", Source: model.SourceLocal}
}

func TestArchiveService_DisabledDropsAnswers(t *testing.T) {
	producer := &fakeProducer{}
	svc := NewArchiveService(archiveConfig(false, 2), producer)
	svc.Record(answer("a"))
	assert.Zero(t, svc.Pending())
	require.NoError(t, svc.FlushPending(context.Background()))
	assert.Zero(t, producer.calls)
}

func TestArchiveService_FlushesInBatches(t *testing.T) {
	producer := &fakeProducer{}
	svc := NewArchiveService(archiveConfig(true, 2), producer)
	for _, id := range []string{"a", "b", "c"} {
		svc.Record(answer(id))
	}
	assert.Equal(t, 3, svc.Pending())

	require.NoError(t, svc.FlushPending(context.Background()))
	assert.Zero(t, svc.Pending())
	require.Len(t, producer.batches, 2)
	assert.Len(t, producer.batches[0], 2)
	assert.Equal(t, "c", producer.batches[1][0].MessageID)
	assert.False(t, producer.batches[0][0].Timestamp.IsZero())
}

func TestArchiveService_RequeuesOnFailure(t *testing.T) {
	producer := &fakeProducer{failAt: 2}
	svc := NewArchiveService(archiveConfig(true, 2), producer)
	for _, id := range []string{"a", "b", "c"} {
		svc.Record(answer(id))
	}

	err := svc.FlushPending(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, svc.Pending())

	require.NoError(t, svc.FlushPending(context.Background()))
	require.Len(t, producer.batches, 2)
	assert.Equal(t, "c", producer.batches[1][0].MessageID)
}

func TestArchiveService_BoundedBuffer(t *testing.T) {
	svc := NewArchiveService(archiveConfig(true, 1), &fakeProducer{})
	for i := 0; i < 60; i++ {
		svc.Record(answer("x"))
	}
	assert.Equal(t, 50, svc.Pending())
}

type fakeHistoryRepo struct{ last dto.HistorySearchRequest }

func (r *fakeHistoryRepo) Search(ctx context.Context, req dto.HistorySearchRequest) (*dto.HistorySearchResponse, error) {
	r.last = req
	return &dto.HistorySearchResponse{Page: req.Page, Size: req.Size}, nil
}

func TestHistoryService_Validation(t *testing.T) {
	svc := NewHistoryService(&fakeHistoryRepo{})
	ctx := context.Background()
	now := time.Now()

	_, err := svc.SearchAnswers(ctx, dto.HistorySearchRequest{})
	assert.ErrorIs(t, err, ErrMissingTimeRange)

	_, err = svc.SearchAnswers(ctx, dto.HistorySearchRequest{StartTime: now, EndTime: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestHistoryService_Normalizes(t *testing.T) {
	repo := &fakeHistoryRepo{}
	svc := NewHistoryService(repo)
	now := time.Now()

	_, err := svc.SearchAnswers(context.Background(), dto.HistorySearchRequest{
		StartTime: now.Add(-time.Hour),
		EndTime:   now,
		Sources:   []string{"REMOTE"},
		SortOrder: "sideways",
		Size:      5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.last.Page)
	assert.Equal(t, 50, repo.last.Size)
	assert.Equal(t, "@timestamp", repo.last.SortBy)
	assert.Equal(t, "desc", repo.last.SortOrder)
	assert.Equal(t, []string{"remote"}, repo.last.Sources)
}
