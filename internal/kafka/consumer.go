package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/model"
)

type AnswerConsumer interface {
	FetchMessage(ctx context.Context) (*model.ArchivedAnswer, kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaAnswerConsumer struct {
	reader *kafka.Reader
}

// NewAnswerConsumer returns nil when archiving is disabled; callers must not
// start a consume loop in that case.
func NewAnswerConsumer(lc fx.Lifecycle, cfg *config.Config) (AnswerConsumer, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topic:          cfg.Kafka.ArchiveTopic,
		MinBytes:       1,
		MaxBytes:       10e6,             // 10MB
		MaxWait:        10 * time.Second, // Wait up to 10 second for data
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	c := &kafkaAnswerConsumer{
		reader: reader,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("group", cfg.Kafka.ConsumerGroup).Msg("Closing Kafka consumer")
			return c.Close()
		},
	})
	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.ArchiveTopic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("Kafka consumer initialized")
	return c, nil
}

func (c *kafkaAnswerConsumer) FetchMessage(ctx context.Context) (*model.ArchivedAnswer, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Fail when fetching Kafka message.")
		return nil, kafka.Message{}, err
	}
	log.Debug().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("Fetched message from Kafka")
	answer, err := DecodeAnswer(msg)
	if err != nil {
		log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to unmarshal Kafka message value")
		return nil, msg, err
	}
	return answer, msg, nil
}

func (c *kafkaAnswerConsumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	err := c.reader.CommitMessages(ctx, msgs...)
	if err != nil {
		log.Error().Err(err).Int("count", len(msgs)).Msg("Failed to commit Kafka messages")
		return err
	}
	log.Debug().Int("count", len(msgs)).Int64("last_offset", msgs[len(msgs)-1].Offset).Msg("Committed Kafka messages")
	return nil
}

func (c *kafkaAnswerConsumer) Close() error {
	return c.reader.Close()
}

func DecodeAnswer(msg kafka.Message) (*model.ArchivedAnswer, error) {
	var answer model.ArchivedAnswer
	if err := json.Unmarshal(msg.Value, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}
