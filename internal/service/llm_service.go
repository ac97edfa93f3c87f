package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/model"
)

var ErrMissingCredential = errors.New("LLM API key is not configured")

const (
	emptyAnalysisAnswer = "抱歉，无法生成分析结果"
	emptyChatAnswer     = "抱歉，无法生成回复"
	maxErrorBodyLen     = 512
)

// APIError is a non-2xx reply from the completions endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API调用失败: %d", e.StatusCode)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens"`
	Temperature float64                 `json:"temperature"`
	Stream      bool                    `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// LLMService answers questions through a hosted chat model. An empty apiKey
// falls back to the server's configured key.
type LLMService interface {
	Analyze(ctx context.Context, apiKey, question string, dataset model.DatasetInfo) (string, error)
	Chat(ctx context.Context, apiKey string, messages []dto.ChatMessage, dataset *dto.ChatDataset) (string, error)
}

type qwenLLMService struct {
	endpoint         string
	defaultKey       string
	modelID          string
	httpClient       *http.Client
	maxRetries       uint64
	retryInterval    time.Duration
	maxTokens        int
	chatMaxTokens    int
	temperature      float64
	promptSampleRows int
}

func NewQwenLLMService(cfg *config.Config) LLMService {
	return newQwenLLMService(cfg, &http.Client{Timeout: cfg.LLM.Timeout}, 500*time.Millisecond)
}

func newQwenLLMService(cfg *config.Config, client *http.Client, retryInterval time.Duration) *qwenLLMService {
	return &qwenLLMService{
		endpoint:         cfg.LLM.BaseURL + "/chat/completions",
		defaultKey:       cfg.LLM.APIKey,
		modelID:          cfg.LLM.Model,
		httpClient:       client,
		maxRetries:       cfg.LLM.MaxRetries,
		retryInterval:    retryInterval,
		maxTokens:        cfg.LLM.MaxTokens,
		chatMaxTokens:    cfg.LLM.ChatMaxTokens,
		temperature:      cfg.LLM.Temperature,
		promptSampleRows: cfg.Analysis.PromptSampleRows,
	}
}

func (s *qwenLLMService) Analyze(ctx context.Context, apiKey, question string, dataset model.DatasetInfo) (string, error) {
	log.Info().Str("question", question).Str("dataset", dataset.Name).Msg("LLM Service: Analyzing question")

	systemPrompt, err := buildAnalysisPrompt(dataset, s.promptSampleRows)
	if err != nil {
		return "", err
	}
	messages := []chatCompletionMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: question},
	}
	answer, err := s.complete(ctx, apiKey, messages, s.maxTokens)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return emptyAnalysisAnswer, nil
	}
	return answer, nil
}

func (s *qwenLLMService) Chat(ctx context.Context, apiKey string, messages []dto.ChatMessage, dataset *dto.ChatDataset) (string, error) {
	log.Info().Int("turns", len(messages)).Msg("LLM Service: Chat")

	apiMessages := make([]chatCompletionMessage, 0, len(messages)+1)
	apiMessages = append(apiMessages, chatCompletionMessage{Role: "system", Content: buildChatPrompt(dataset)})
	for _, m := range messages {
		apiMessages = append(apiMessages, chatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	answer, err := s.complete(ctx, apiKey, apiMessages, s.chatMaxTokens)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return emptyChatAnswer, nil
	}
	return answer, nil
}

func (s *qwenLLMService) resolveKey(apiKey string) (string, error) {
	if k := strings.TrimSpace(apiKey); k != "" {
		return k, nil
	}
	if s.defaultKey != "" {
		return s.defaultKey, nil
	}
	return "", ErrMissingCredential
}

// complete posts one completion request, retrying rate limits, server
// errors and transport failures with exponential backoff.
func (s *qwenLLMService) complete(ctx context.Context, apiKey string, messages []chatCompletionMessage, maxTokens int) (string, error) {
	key, err := s.resolveKey(apiKey)
	if err != nil {
		return "", err
	}

	bodyBytes, err := json.Marshal(chatCompletionRequest{
		Model:       s.modelID,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal completion request body")
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	var respBody []byte
	attempt := 0
	operation := func() error {
		attempt++
		body, err := s.callCompletionsAPI(ctx, key, bodyBytes)
		if err == nil {
			respBody = body
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Completion request failed, retrying...")
		return err
	}

	// WithMaxRetries treats 0 as unlimited.
	var retryPolicy backoff.BackOff = &backoff.StopBackOff{}
	if s.maxRetries > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = s.retryInterval
		retryPolicy = backoff.WithMaxRetries(exp, s.maxRetries)
	}
	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy, ctx)); err != nil {
		return "", err
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		log.Error().Err(err).Bytes("response_body", respBody).Msg("Failed to unmarshal completion response")
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		log.Warn().Bytes("response_body", respBody).Msg("Completion response has no choices")
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (s *qwenLLMService) callCompletionsAPI(ctx context.Context, apiKey string, bodyBytes []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create completion HTTP request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Completion HTTP request failed")
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read completion response body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := truncateUTF8(string(respBodyBytes), maxErrorBodyLen)
		log.Error().Int("status_code", resp.StatusCode).Str("response_body", msg).Msg("Completions API returned non-OK status")
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return respBodyBytes, nil
}

func buildAnalysisPrompt(dataset model.DatasetInfo, sampleRows int) (string, error) {
	sample := dataset.SampleData
	if sampleRows >= 0 && len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	if sample == nil {
		sample = []model.Row{}
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample rows: %w", err)
	}

	return fmt.Sprintf(`你是一个专业的数据分析师AI助手。用户会给你一份数据的描述和一个问题，请你分析数据并回答问题。

数据信息：
- 数据名称: %s
- 列名: %s
- 数据量: %d 行
- 样本数据: %s

请根据数据回答用户的问题。回答要求：
1. 简洁明了，突出关键数据
2. 如果涉及数值，给出具体数字
3. 如果适合可视化，建议合适的图表类型
4. 用中文回答`, dataset.Name, strings.Join(dataset.Columns, ", "), dataset.RowCount, sampleJSON), nil
}

func buildChatPrompt(dataset *dto.ChatDataset) string {
	prompt := "你是EdgeInsight的AI数据分析助手，帮助用户分析和理解数据。"
	if dataset != nil {
		prompt += fmt.Sprintf("\n\n当前数据集: %s, 包含 %d 列: %s",
			dataset.Name, len(dataset.Columns), strings.Join(dataset.Columns, ", "))
	}
	return prompt
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
