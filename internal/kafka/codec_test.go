package kafka_test

import (
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeinsight-backend/internal/kafka"
	"edgeinsight-backend/internal/model"
)

func TestAnswerCodec(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	answers := []model.ArchivedAnswer{
		{Timestamp: ts, SessionID: "s1", MessageID: "ai-1", Question: "销售额最高的是哪个月？", Answer: "3月", Source: model.SourceLocal},
		{Timestamp: ts, SessionID: "s2", MessageID: "ai-2", Answer: "ok", Source: model.SourceRemote, ChartTypes: []string{"bar"}},
	}

	messages := kafka.EncodeAnswers(answers)
	require.Len(t, messages, 2)
	assert.Equal(t, "s1", string(messages[0].Key))

	decoded, err := kafka.DecodeAnswer(messages[1])
	require.NoError(t, err)
	assert.Equal(t, answers[1].MessageID, decoded.MessageID)
	assert.Equal(t, []string{"bar"}, decoded.ChartTypes)
	assert.True(t, ts.Equal(decoded.Timestamp))

	_, err = kafka.DecodeAnswer(kafkaGo.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
