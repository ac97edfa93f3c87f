package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/elasticsearch"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/service"
	"edgeinsight-backend/internal/util"
)

type HistoryController struct {
	historyService service.HistoryService
}

func NewHistoryController(historyService service.HistoryService) *HistoryController {
	return &HistoryController{
		historyService: historyService,
	}
}

func RegisterHistoryRoutes(router *gin.Engine, controller *HistoryController) {
	v1 := router.Group("/api/v1/history")
	{
		v1.GET("", controller.SearchHistory)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SearchHistory godoc
// @Summary      Search archived answers
// @Description  Searches answered questions archived to Elasticsearch by time range, free text, session, dataset and answer source. Supports pagination and sorting.
// @Tags         history
// @Produce      json
// @Param        startTime    query     string  true   "Start time in ISO 8601 format (e.g., 2024-04-29T09:00:00Z) or epoch milliseconds"
// @Param        endTime      query     string  true   "End time in ISO 8601 format (e.g., 2024-04-29T10:00:00Z) or epoch milliseconds"
// @Param        query        query     string  false  "Free text search over questions and answers"
// @Param        sessionId    query     string  false  "Session id"
// @Param        datasetName  query     string  false  "Dataset name"
// @Param        sources      query     string  false  "Comma-separated answer sources (remote,local)"
// @Param        sortBy       query     string  false  "Field to sort by (default: @timestamp)"
// @Param        sortOrder    query     string  false  "Sort order (asc or desc, default: desc)" Enums(asc, desc)
// @Param        page         query     int     false  "Page number (default: 1)" minimum(1)
// @Param        size         query     int     false  "Answers per page (default: 50, max: 1000)" minimum(1) maximum(1000)
// @Success      200          {object}  dto.HistorySearchResponse
// @Failure      400          {object}  model.Response "Invalid query parameters"
// @Failure      503          {object}  model.Response "Archive disabled"
// @Failure      500          {object}  model.Response "Internal server error"
// @Router       /api/v1/history [get]
func (c *HistoryController) SearchHistory(ctx *gin.Context) {
	startTime, errStart := util.ParseTimeFlexible(ctx.Query("startTime"))
	endTime, errEnd := util.ParseTimeFlexible(ctx.Query("endTime"))
	if errStart != nil || errEnd != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid startTime or endTime format. Use ISO 8601 or epoch milliseconds.", nil))
		return
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(ctx.DefaultQuery("size", "50"))
	if err != nil {
		size = 50
	}

	req := dto.HistorySearchRequest{
		StartTime:   startTime,
		EndTime:     endTime,
		Query:       ctx.Query("query"),
		SessionID:   ctx.Query("sessionId"),
		DatasetName: ctx.Query("datasetName"),
		Sources:     splitCSV(ctx.Query("sources")),
		SortBy:      ctx.DefaultQuery("sortBy", "@timestamp"),
		SortOrder:   ctx.DefaultQuery("sortOrder", "desc"),
		Page:        page,
		Size:        size,
	}

	result, err := c.historyService.SearchAnswers(ctx.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingTimeRange), errors.Is(err, service.ErrInvalidTimeRange):
			ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		case errors.Is(err, elasticsearch.ErrArchiveDisabled):
			ctx.JSON(http.StatusServiceUnavailable, model.NewResponse(err.Error(), nil))
		default:
			log.Error().Err(err).Msg("Error searching answer history")
			ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to search history", nil))
		}
		return
	}

	ctx.JSON(http.StatusOK, result)
}
