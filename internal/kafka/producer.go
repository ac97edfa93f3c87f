package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/model"
)

type AnswerProducer interface {
	Produce(ctx context.Context, answers []model.ArchivedAnswer) error
	Close() error
}

type kafkaAnswerProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewAnswerProducer returns a no-op producer when archiving is disabled.
func NewAnswerProducer(lc fx.Lifecycle, cfg *config.Config) (AnswerProducer, error) {
	if !cfg.Archive.Enabled {
		log.Info().Msg("Answer archive disabled, using no-op producer")
		return noopAnswerProducer{}, nil
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.ArchiveTopic == "" {
		log.Error().Msg("Kafka brokers or archive topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ArchiveTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.Archive.BatchSize,
		BatchTimeout: cfg.Archive.MaxBatchWait,
		Async:        true,
	})
	p := &kafkaAnswerProducer{
		writer: writer,
		topic:  cfg.Kafka.ArchiveTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.ArchiveTopic).Msg("Kafka producer initialized")
	return p, nil
}

func (p *kafkaAnswerProducer) Produce(ctx context.Context, answers []model.ArchivedAnswer) error {
	messages := EncodeAnswers(answers)
	if len(messages) == 0 {
		log.Debug().Msg("No valid messages to produce.")
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")
	return nil
}

func (p *kafkaAnswerProducer) Close() error {
	return p.writer.Close()
}

// EncodeAnswers turns answers into messages keyed by session, skipping any
// answer that fails to marshal.
func EncodeAnswers(answers []model.ArchivedAnswer) []kafka.Message {
	messages := make([]kafka.Message, 0, len(answers))
	for _, a := range answers {
		value, err := json.Marshal(a)
		if err != nil {
			log.Error().Err(err).Str("message_id", a.MessageID).Msg("Failed to marshal answer for Kafka")
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(a.SessionID),
			Value: value,
		})
	}
	return messages
}

type noopAnswerProducer struct{}

func (noopAnswerProducer) Produce(context.Context, []model.ArchivedAnswer) error { return nil }
func (noopAnswerProducer) Close() error                                          { return nil }
