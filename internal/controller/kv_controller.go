package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/cache"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/service"
)

type KVController struct {
	kvService       service.KVService
	analysisCache   cache.AnalysisCache
	analysisService service.AnalysisService
}

func NewKVController(kvService service.KVService, analysisCache cache.AnalysisCache, analysisService service.AnalysisService) *KVController {
	return &KVController{
		kvService:       kvService,
		analysisCache:   analysisCache,
		analysisService: analysisService,
	}
}

func RegisterKVRoutes(router *gin.Engine, controller *KVController) {
	kv := router.Group("/api/kv")
	{
		kv.POST("/store", controller.Store)
		kv.GET("/get", controller.Get)
		kv.DELETE("/delete", controller.Delete)
	}
	c := router.Group("/api/cache")
	{
		c.GET("/stats", controller.CacheStats)
		c.DELETE("", controller.ClearCache)
		c.POST("/warmup", controller.WarmupCache)
	}
}

// Store godoc
// @Summary      Store session data
// @Description  Stores arbitrary JSON under data:<sessionId> with the data TTL.
// @Tags         kv
// @Accept       json
// @Produce      json
// @Param        request  body      dto.KVStoreRequest  true  "Session id and payload"
// @Success      200      {object}  dto.KVStoreResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /api/kv/store [post]
func (c *KVController) Store(ctx *gin.Context) {
	var req dto.KVStoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: service.ErrMissingSessionID.Error()})
		return
	}
	key, err := c.kvService.Store(ctx.Request.Context(), req.SessionID, req.Data)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.KVStoreResponse{Success: true, Key: key})
}

// Get godoc
// @Summary      Get session data
// @Description  Returns the stored payload, or null when nothing is stored or it expired.
// @Tags         kv
// @Produce      json
// @Param        sessionId  query     string  true  "Session id"
// @Success      200        {object}  dto.KVGetResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /api/kv/get [get]
func (c *KVController) Get(ctx *gin.Context) {
	sessionID := ctx.Query("sessionId")
	if sessionID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: service.ErrMissingSessionID.Error()})
		return
	}
	data, err := c.kvService.Load(ctx.Request.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load session data")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.KVGetResponse{Data: data})
}

// Delete godoc
// @Summary      Delete session data
// @Tags         kv
// @Produce      json
// @Param        sessionId  query     string  true  "Session id"
// @Success      200        {object}  dto.KVStoreResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /api/kv/delete [delete]
func (c *KVController) Delete(ctx *gin.Context) {
	sessionID := ctx.Query("sessionId")
	if sessionID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: service.ErrMissingSessionID.Error()})
		return
	}
	if err := c.kvService.Delete(ctx.Request.Context(), sessionID); err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.KVStoreResponse{Success: true})
}

// CacheStats godoc
// @Summary      Analysis cache statistics
// @Tags         cache
// @Produce      json
// @Success      200  {object}  cache.Stats
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/cache/stats [get]
func (c *KVController) CacheStats(ctx *gin.Context) {
	stats, err := c.analysisCache.Stats(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// ClearCache godoc
// @Summary      Clear cached analyses
// @Description  Removes cached answers whose cache key contains pattern; no pattern clears everything.
// @Tags         cache
// @Produce      json
// @Param        pattern  query     string  false  "Substring of the cache key"
// @Success      200      {object}  dto.CacheClearResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /api/cache [delete]
func (c *KVController) ClearCache(ctx *gin.Context) {
	pattern := ctx.Query("pattern")
	cleared, err := c.analysisCache.Clear(ctx.Request.Context(), pattern)
	if err != nil {
		log.Error().Err(err).Str("pattern", pattern).Msg("Failed to clear cache")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	log.Info().Str("pattern", pattern).Int("cleared", cleared).Msg("Cache cleared")
	ctx.JSON(http.StatusOK, dto.CacheClearResponse{Cleared: cleared})
}

// WarmupCache godoc
// @Summary      Warm the analysis cache
// @Description  Answers every hot question for the dataset in the background so later requests hit the cache.
// @Tags         cache
// @Accept       json
// @Produce      json
// @Param        X-API-Key  header    string                  false  "Model API key overriding the server key"
// @Param        request    body      dto.CacheWarmupRequest  true   "Dataset summary"
// @Success      202        {object}  dto.CacheWarmupResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/cache/warmup [post]
func (c *KVController) WarmupCache(ctx *gin.Context) {
	var req dto.CacheWarmupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "缺少必要参数"})
		return
	}
	apiKey := ctx.GetHeader(APIKeyHeader)
	dataset := *req.Dataset
	go func() {
		if _, err := c.analysisService.Warmup(context.Background(), apiKey, dataset); err != nil {
			log.Warn().Err(err).Str("dataset", dataset.Name).Msg("Cache warmup aborted")
		}
	}()
	ctx.JSON(http.StatusAccepted, dto.CacheWarmupResponse{Queued: len(cache.HotQuestions)})
}
