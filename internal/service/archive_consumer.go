package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/elasticsearch"
	"edgeinsight-backend/internal/kafka"
	"edgeinsight-backend/internal/model"
)

type ArchiveConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type archiveConsumerService struct {
	consumer    kafka.AnswerConsumer
	answerStore elasticsearch.AnswerStore
	batchSize   int           // How many Kafka messages to process at once
	maxWaitTime time.Duration // Max time to wait for batchSize messages
}

func NewArchiveConsumerService(
	consumer kafka.AnswerConsumer,
	answerStore elasticsearch.AnswerStore,
	cfg *config.Config,
) ArchiveConsumerService {
	batchSize := cfg.Archive.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxWaitTime := cfg.Archive.MaxBatchWait
	if maxWaitTime <= 0 {
		maxWaitTime = 5 * time.Second
	}
	return &archiveConsumerService{
		consumer:    consumer,
		answerStore: answerStore,
		batchSize:   batchSize,
		maxWaitTime: maxWaitTime,
	}
}

func (s *archiveConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	if s.consumer == nil {
		log.Info().Msg("Archive consumer not configured, loop not started.")
		return
	}
	log.Info().Msg("Starting Archive Consumer Service loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Archive Consumer Service loop stopping due to context cancellation.")
			return
		default:
		}

		err := s.processBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Context cancelled during batch processing.")
				return
			}
			log.Error().Err(err).Msg("Error processing consumer batch")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *archiveConsumerService) processBatch(ctx context.Context) error {
	answers := make([]model.ArchivedAnswer, 0, s.batchSize)
	messages := make([]kafkaGo.Message, 0, s.batchSize)
	batchStartTime := time.Now()

	for len(messages) < s.batchSize {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Context cancelled while building consumer batch.")
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, s.maxWaitTime-time.Since(batchStartTime))
		answer, msg, err := s.consumer.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				log.Debug().Int("batch_size", len(messages)).Msg("Max wait time reached for batch, processing partial batch.")
				break
			}
			// Undecodable messages are committed with the batch so they are not redelivered forever.
			if msg.Topic != "" {
				log.Warn().Int64("offset", msg.Offset).Msg("Skipping undecodable message, tracking it for commit.")
				messages = append(messages, msg)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		answers = append(answers, *answer)
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		log.Debug().Msg("No messages in batch to process.")
		return nil
	}

	if err := s.answerStore.StoreAnswers(ctx, answers); err != nil {
		log.Error().Err(err).Msg("Failed to store answers to Elasticsearch")
		// Not committing leads to reprocessing.
		return fmt.Errorf("failed storing answers: %w", err)
	}

	if err := s.consumer.CommitMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Msg("Failed to commit Kafka messages after successful storage")
		return fmt.Errorf("failed committing kafka messages: %w", err)
	}
	log.Info().Int("batch_size", len(messages)).Int("stored", len(answers)).Msg("Successfully processed and committed batch.")
	return nil
}
