package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/service"
)

// APIKeyHeader lets a caller use their own model key instead of the server's.
const APIKeyHeader = "X-API-Key"

const unknownEdge = "unknown"

type EdgeController struct {
	analysisService service.AnalysisService
	version         string
}

func NewEdgeController(analysisService service.AnalysisService, cfg *config.Config) *EdgeController {
	return &EdgeController{
		analysisService: analysisService,
		version:         cfg.Server.Version,
	}
}

func RegisterEdgeRoutes(router *gin.Engine, controller *EdgeController) {
	api := router.Group("/api")
	{
		api.GET("/health", controller.Health)
		api.POST("/analyze", controller.Analyze)
		api.POST("/chat", controller.Chat)
	}
}

func headerOr(ctx *gin.Context, name string) string {
	if v := ctx.GetHeader(name); v != "" {
		return v
	}
	return unknownEdge
}

// Health godoc
// @Summary      Health check
// @Description  Reports liveness, server time, the serving edge location when a CDN supplies it, and the version.
// @Tags         health
// @Produce      json
// @Success      200  {object}  dto.HealthResponse
// @Router       /api/health [get]
func (c *EdgeController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Edge: dto.EdgeInfo{
			Colo:    headerOr(ctx, "X-Edge-Colo"),
			Country: headerOr(ctx, "X-Edge-Country"),
			City:    headerOr(ctx, "X-Edge-City"),
			Region:  headerOr(ctx, "X-Edge-Region"),
		},
		Version: c.version,
	})
}

// Analyze godoc
// @Summary      Analyze a question about a dataset
// @Description  Sends the question with a dataset summary to the language model and returns its answer, highlights and suggested charts. Answers to common questions are cached.
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        X-API-Key  header    string              false  "Model API key overriding the server key"
// @Param        request    body      dto.AnalyzeRequest  true   "Question and dataset summary"
// @Success      200        {object}  dto.AnalyzeResponse
// @Failure      400        {object}  dto.ErrorResponse   "Missing question or dataset"
// @Failure      500        {object}  dto.ErrorResponse   "Model call failed"
// @Router       /api/analyze [post]
func (c *EdgeController) Analyze(ctx *gin.Context) {
	var req dto.AnalyzeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid analyze request body")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少必要参数"})
		return
	}

	resp, err := c.analysisService.Analyze(ctx.Request.Context(), ctx.GetHeader(APIKeyHeader), req)
	if err != nil {
		if errors.Is(err, service.ErrMissingParams) {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少必要参数"})
			return
		}
		log.Error().Err(err).Str("question", req.Question).Msg("Analyze failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "分析失败", Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Chat godoc
// @Summary      Multi-turn chat
// @Description  Continues a conversation with the language model, optionally grounded on a dataset summary.
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        X-API-Key  header    string           false  "Model API key overriding the server key"
// @Param        request    body      dto.ChatRequest  true   "Conversation so far"
// @Success      200        {object}  dto.ChatResponse
// @Failure      400        {object}  dto.ErrorResponse  "No messages"
// @Failure      500        {object}  dto.ErrorResponse  "Model call failed"
// @Router       /api/chat [post]
func (c *EdgeController) Chat(ctx *gin.Context) {
	var req dto.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid chat request body")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少消息"})
		return
	}

	resp, err := c.analysisService.Chat(ctx.Request.Context(), ctx.GetHeader(APIKeyHeader), req)
	if err != nil {
		if errors.Is(err, service.ErrMissingMessages) {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少消息"})
			return
		}
		log.Error().Err(err).Int("turns", len(req.Messages)).Msg("Chat failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "对话失败", Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
