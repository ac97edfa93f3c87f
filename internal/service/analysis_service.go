package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/cache"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/model"
)

var (
	ErrMissingParams   = errors.New("question and dataset are required")
	ErrMissingMessages = errors.New("messages are required")
)

const (
	missingKeyHint = "\n\n💡 **提示**：配置通义千问API密钥后可获得更智能的AI分析。点击右上角\"设置\"按钮配置。"
	remoteDownHint = "\n\n⚠️ AI分析暂时不可用，已使用本地分析。请检查API密钥是否正确。"
)

// AnalysisService runs questions against a dataset, remotely through the LLM
// or locally through the question router.
type AnalysisService interface {
	// Analyze answers a stateless question about a dataset summary.
	Analyze(ctx context.Context, apiKey string, req dto.AnalyzeRequest) (dto.AnalyzeResponse, error)
	Chat(ctx context.Context, apiKey string, req dto.ChatRequest) (dto.ChatResponse, error)
	// Ask answers a question on a session and appends both turns to its log.
	Ask(ctx context.Context, sessionID, question string) (dto.AskResponse, error)
	// Warmup runs every hot question that is not cached yet for dataset and
	// returns how many answers it stored.
	Warmup(ctx context.Context, apiKey string, dataset model.DatasetInfo) (int, error)
}

type analysisService struct {
	llm               LLMService
	sessions          SessionService
	cache             cache.AnalysisCache
	archive           ArchiveService
	requestSampleRows int
}

func NewAnalysisService(cfg *config.Config, llm LLMService, sessions SessionService, analysisCache cache.AnalysisCache, archive ArchiveService) AnalysisService {
	return &analysisService{
		llm:               llm,
		sessions:          sessions,
		cache:             analysisCache,
		archive:           archive,
		requestSampleRows: cfg.Analysis.RequestSampleRows,
	}
}

func (s *analysisService) Analyze(ctx context.Context, apiKey string, req dto.AnalyzeRequest) (dto.AnalyzeResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" || req.Dataset == nil {
		return dto.AnalyzeResponse{}, ErrMissingParams
	}
	dataset := *req.Dataset

	var cacheKey string
	if cache.ShouldCache(question) {
		cacheKey = cache.AnalyzeKey(question, dataset.Name, dataset.Columns)
		var cached dto.AnalyzeResponse
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn().Err(err).Str("cache_key", cacheKey).Msg("Analysis cache lookup failed")
		} else if hit {
			log.Debug().Str("cache_key", cacheKey).Msg("Analysis cache hit")
			return cached, nil
		}
	}

	answer, err := s.llm.Analyze(ctx, apiKey, question, dataset)
	if err != nil {
		return dto.AnalyzeResponse{}, err
	}

	resp := dto.AnalyzeResponse{
		Answer:    answer,
		Insights:  analysis.ExtractInsights(answer),
		Charts:    analysis.SuggestCharts(question, dataset.AsDataset()),
		Timestamp: time.Now().UTC(),
	}

	if cacheKey != "" {
		if err := s.cache.Put(ctx, cacheKey, resp); err != nil {
			log.Warn().Err(err).Str("cache_key", cacheKey).Msg("Failed to store analysis in cache")
		}
	}
	return resp, nil
}

func (s *analysisService) Warmup(ctx context.Context, apiKey string, dataset model.DatasetInfo) (int, error) {
	warmed := 0
	for _, question := range cache.HotQuestions {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		var cached dto.AnalyzeResponse
		if hit, err := s.cache.Get(ctx, cache.AnalyzeKey(question, dataset.Name, dataset.Columns), &cached); err == nil && hit {
			continue
		}
		if _, err := s.Analyze(ctx, apiKey, dto.AnalyzeRequest{Question: question, Dataset: &dataset}); err != nil {
			log.Warn().Err(err).Str("question", question).Msg("Cache warmup question failed")
			if errors.Is(err, ErrMissingCredential) {
				return warmed, err
			}
			continue
		}
		warmed++
	}
	log.Info().Int("warmed", warmed).Str("dataset", dataset.Name).Msg("Cache warmup finished")
	return warmed, nil
}

func (s *analysisService) Chat(ctx context.Context, apiKey string, req dto.ChatRequest) (dto.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return dto.ChatResponse{}, ErrMissingMessages
	}
	content, err := s.llm.Chat(ctx, apiKey, req.Messages, req.Dataset)
	if err != nil {
		return dto.ChatResponse{}, err
	}
	return dto.ChatResponse{Content: content, Timestamp: time.Now().UTC()}, nil
}

func (s *analysisService) Ask(ctx context.Context, sessionID, question string) (dto.AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return dto.AskResponse{}, ErrMissingParams
	}

	userMsg := model.NewMessage(model.RoleUser, question)
	session, err := s.sessions.Update(ctx, sessionID, func(session *model.Session) error {
		session.Messages = append(session.Messages, userMsg)
		return nil
	})
	if err != nil {
		return dto.AskResponse{}, err
	}

	assistantMsg, source := s.answer(ctx, session, question)

	_, err = s.sessions.Update(ctx, sessionID, func(session *model.Session) error {
		session.Messages = append(session.Messages, assistantMsg)
		for _, c := range assistantMsg.Charts {
			if session.ChartIndex(c.ID) < 0 {
				session.Charts = append(session.Charts, c)
			}
		}
		return nil
	})
	if err != nil {
		return dto.AskResponse{}, err
	}

	s.archive.Record(archivedAnswer(session, question, assistantMsg, source))

	return dto.AskResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Source:           source,
	}, nil
}

// answer asks the remote model first and falls back to the local router.
func (s *analysisService) answer(ctx context.Context, session *model.Session, question string) (model.Message, model.AnswerSource) {
	dataset := session.Dataset
	if dataset == nil {
		return model.NewMessage(model.RoleAssistant, analysis.Route(question, nil).Content), model.SourceLocal
	}

	content, err := s.llm.Analyze(ctx, session.APIKey, question, dataset.Info(s.requestSampleRows))
	if err == nil {
		msg := model.NewMessage(model.RoleAssistant, content)
		msg.Insights = analysis.ExtractInsights(content)
		msg.Charts = analysis.SuggestCharts(question, dataset)
		return msg, model.SourceRemote
	}

	local := analysis.Route(question, dataset)
	hint := remoteDownHint
	if errors.Is(err, ErrMissingCredential) {
		hint = missingKeyHint
	} else {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Remote analysis failed, using local engine")
	}

	msg := model.NewMessage(model.RoleAssistant, local.Content+hint)
	msg.Insights = local.Insights
	msg.Charts = local.Charts
	return msg, model.SourceLocal
}

func archivedAnswer(session *model.Session, question string, msg model.Message, source model.AnswerSource) model.ArchivedAnswer {
	chartTypes := make([]string, 0, len(msg.Charts))
	for _, c := range msg.Charts {
		chartTypes = append(chartTypes, string(c.Type))
	}
	var datasetName string
	if session.Dataset != nil {
		datasetName = session.Dataset.Name
	}
	return model.ArchivedAnswer{
		Timestamp:   msg.Timestamp,
		SessionID:   session.ID,
		MessageID:   msg.ID,
		DatasetName: datasetName,
		Question:    question,
		Answer:      msg.Content,
		Source:      source,
		Insights:    msg.Insights,
		ChartTypes:  chartTypes,
	}
}
