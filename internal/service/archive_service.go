package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/kafka"
	"edgeinsight-backend/internal/model"
)

// ArchiveService collects answered questions and ships them to the archive
// topic in batches. FlushPending is driven by the scheduler.
type ArchiveService interface {
	Record(answer model.ArchivedAnswer)
	FlushPending(ctx context.Context) error
	Pending() int
}

type archiveService struct {
	producer    kafka.AnswerProducer
	enabled     bool
	batchSize   int
	mu          sync.Mutex
	pending     []model.ArchivedAnswer
	processLock sync.Mutex
	maxBuffered int
}

func NewArchiveService(cfg *config.Config, producer kafka.AnswerProducer) ArchiveService {
	batchSize := cfg.Archive.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &archiveService{
		producer:    producer,
		enabled:     cfg.Archive.Enabled,
		batchSize:   batchSize,
		maxBuffered: batchSize * 50,
	}
}

func (s *archiveService) Record(answer model.ArchivedAnswer) {
	if !s.enabled {
		return
	}
	if answer.Timestamp.IsZero() {
		answer.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= s.maxBuffered {
		log.Warn().Int("buffered", len(s.pending)).Msg("Archive buffer full, dropping oldest answer")
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, answer)
}

func (s *archiveService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *archiveService) FlushPending(ctx context.Context) error {
	if !s.processLock.TryLock() {
		log.Warn().Msg("Archive flush already in progress, skipping run.")
		return nil
	}
	defer s.processLock.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	startTime := time.Now()
	sent := 0
	for start := 0; start < len(batch); start += s.batchSize {
		end := start + s.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.sendBatch(ctx, batch[start:end]); err != nil {
			s.requeue(batch[start:])
			return err
		}
		sent += end - start
	}

	log.Info().
		Int("answers_sent", sent).
		Dur("duration", time.Since(startTime)).
		Msg("Finished archive flush cycle.")
	return nil
}

// requeue puts unsent answers back in front of anything recorded meanwhile.
func (s *archiveService) requeue(unsent []model.ArchivedAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(append([]model.ArchivedAnswer{}, unsent...), s.pending...)
}

func (s *archiveService) sendBatch(ctx context.Context, batch []model.ArchivedAnswer) error {
	log.Debug().Int("batch_size", len(batch)).Msg("Sending batch to Kafka...")
	if err := s.producer.Produce(ctx, batch); err != nil {
		log.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to send archive batch to Kafka")
		return fmt.Errorf("kafka produce error: %w", err)
	}
	return nil
}
