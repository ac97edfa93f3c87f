package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/parser"
	"edgeinsight-backend/internal/service"
)

type SessionController struct {
	sessionService  service.SessionService
	analysisService service.AnalysisService
	datasetParser   parser.DatasetParser
	maxUploadBytes  int64
}

func NewSessionController(
	sessionService service.SessionService,
	analysisService service.AnalysisService,
	datasetParser parser.DatasetParser,
	cfg *config.Config,
) *SessionController {
	return &SessionController{
		sessionService:  sessionService,
		analysisService: analysisService,
		datasetParser:   datasetParser,
		maxUploadBytes:  cfg.Server.MaxUploadBytes,
	}
}

func RegisterSessionRoutes(router *gin.Engine, controller *SessionController) {
	v1 := router.Group("/api/v1")
	v1.GET("/questions", controller.ExampleQuestions)

	sessions := v1.Group("/sessions")
	{
		sessions.POST("", controller.Upload)
		sessions.POST("/paste", controller.Paste)
		sessions.GET("/:id", controller.GetSession)
		sessions.DELETE("/:id", controller.ClearSession)
		sessions.PUT("/:id/apikey", controller.SetAPIKey)
		sessions.POST("/:id/ask", controller.Ask)
		sessions.GET("/:id/messages", controller.Messages)
		sessions.GET("/:id/charts", controller.ListCharts)
		sessions.POST("/:id/charts", controller.AddChart)
		sessions.PATCH("/:id/charts/:chartId", controller.UpdateChart)
		sessions.DELETE("/:id/charts/:chartId", controller.RemoveChart)
		sessions.GET("/:id/charts/:chartId/data", controller.ChartData)
		sessions.GET("/:id/columns", controller.Columns)
		sessions.GET("/:id/columns/:column/stats", controller.ColumnStats)
		sessions.GET("/:id/correlation", controller.Correlation)
	}
}

// respondError maps service errors onto status codes.
func respondError(ctx *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrChartNotFound):
		ctx.JSON(http.StatusNotFound, model.NewResponse(err.Error(), nil))
	case errors.Is(err, model.ErrUnknownField),
		errors.Is(err, model.ErrInvalidChartType),
		errors.Is(err, model.ErrInvalidAggregation),
		errors.Is(err, analysis.ErrChartFieldsMissing),
		errors.Is(err, service.ErrMissingParams):
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
	default:
		log.Error().Err(err).Str("session_id", ctx.Param("id")).Msg(action + " failed")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Internal server error", nil))
	}
}

// Upload godoc
// @Summary      Upload a dataset
// @Description  Parses a CSV, Excel or JSON file into a dataset, opens a session on it and recommends a default chart set.
// @Tags         sessions
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CSV, XLSX or JSON file"
// @Success      201   {object}  dto.SessionView
// @Failure      400   {object}  model.Response  "Missing, unsupported or empty file"
// @Failure      413   {object}  model.Response  "File too large"
// @Failure      500   {object}  model.Response
// @Router       /api/v1/sessions [post]
func (c *SessionController) Upload(ctx *gin.Context) {
	if c.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			ctx.JSON(http.StatusRequestEntityTooLarge, model.NewResponse("File too large", nil))
			return
		}
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Missing file: "+err.Error(), nil))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Str("file", fileHeader.Filename).Msg("Failed to open uploaded file")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to read upload", nil))
		return
	}
	defer file.Close()

	dataset, err := c.datasetParser.ParseFile(fileHeader.Filename, file)
	if err != nil {
		log.Warn().Err(err).Str("file", fileHeader.Filename).Msg("Failed to parse upload")
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}
	c.openSession(ctx, dataset)
}

// Paste godoc
// @Summary      Load pasted data
// @Description  Parses pasted JSON or CSV text into a dataset and opens a session on it.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request  body      dto.PasteRequest  true  "Pasted text"
// @Success      201      {object}  dto.SessionView
// @Failure      400      {object}  model.Response
// @Failure      500      {object}  model.Response
// @Router       /api/v1/sessions/paste [post]
func (c *SessionController) Paste(ctx *gin.Context) {
	var req dto.PasteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	dataset, err := c.datasetParser.ParseText(req.Text)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}
	c.openSession(ctx, dataset)
}

func (c *SessionController) openSession(ctx *gin.Context, dataset *model.Dataset) {
	session, err := c.sessionService.Load(ctx.Request.Context(), dataset)
	if err != nil {
		respondError(ctx, err, "Load dataset")
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSessionView(session))
}

// GetSession godoc
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  dto.SessionView
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	session, err := c.sessionService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Get session")
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSessionView(session))
}

// ClearSession godoc
// @Summary      Clear a session
// @Description  Drops the dataset, charts and chat log.
// @Tags         sessions
// @Param        id   path  string  true  "Session id"
// @Success      204
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id} [delete]
func (c *SessionController) ClearSession(ctx *gin.Context) {
	if err := c.sessionService.Clear(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, "Clear session")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SetAPIKey godoc
// @Summary      Set the session's model API key
// @Description  An empty key reverts to the server key.
// @Tags         sessions
// @Accept       json
// @Param        id       path  string             true  "Session id"
// @Param        request  body  dto.APIKeyRequest  true  "API key"
// @Success      204
// @Failure      400  {object}  model.Response
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id}/apikey [put]
func (c *SessionController) SetAPIKey(ctx *gin.Context) {
	var req dto.APIKeyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	if err := c.sessionService.SetAPIKey(ctx.Request.Context(), ctx.Param("id"), req.APIKey); err != nil {
		respondError(ctx, err, "Set API key")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Ask godoc
// @Summary      Ask a question in the chat panel
// @Description  Answers with the language model when a key is available and falls back to the local engine otherwise. Both turns are appended to the session and suggested charts are added to the dashboard.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string          true  "Session id"
// @Param        request  body      dto.AskRequest  true  "Question"
// @Success      200      {object}  dto.AskResponse
// @Failure      400      {object}  model.Response
// @Failure      404      {object}  model.Response
// @Router       /api/v1/sessions/{id}/ask [post]
func (c *SessionController) Ask(ctx *gin.Context) {
	var req dto.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	resp, err := c.analysisService.Ask(ctx.Request.Context(), ctx.Param("id"), req.Question)
	if err != nil {
		respondError(ctx, err, "Ask")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Messages godoc
// @Summary      Chat log of a session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {array}   model.Message
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id}/messages [get]
func (c *SessionController) Messages(ctx *gin.Context) {
	msgs, err := c.sessionService.Messages(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "List messages")
		return
	}
	ctx.JSON(http.StatusOK, msgs)
}

// ListCharts godoc
// @Summary      Charts on the dashboard
// @Tags         charts
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {array}   model.ChartSpec
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id}/charts [get]
func (c *SessionController) ListCharts(ctx *gin.Context) {
	charts, err := c.sessionService.Charts(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "List charts")
		return
	}
	ctx.JSON(http.StatusOK, charts)
}

// AddChart godoc
// @Summary      Add a chart
// @Tags         charts
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Session id"
// @Param        request  body      dto.ChartCreateRequest  true  "Chart spec"
// @Success      201      {object}  model.ChartSpec
// @Failure      400      {object}  model.Response
// @Failure      404      {object}  model.Response
// @Router       /api/v1/sessions/{id}/charts [post]
func (c *SessionController) AddChart(ctx *gin.Context) {
	var req dto.ChartCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	spec := model.ChartSpec{
		Type:        req.Type,
		Title:       req.Title,
		XField:      req.XField,
		YField:      req.YField,
		SeriesField: req.SeriesField,
		Aggregation: req.Aggregation,
	}
	added, err := c.sessionService.AddChart(ctx.Request.Context(), ctx.Param("id"), spec)
	if err != nil {
		respondError(ctx, err, "Add chart")
		return
	}
	ctx.JSON(http.StatusCreated, added)
}

// UpdateChart godoc
// @Summary      Update a chart
// @Description  Applies a partial update; omitted fields keep their value.
// @Tags         charts
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Session id"
// @Param        chartId  path      string           true  "Chart id"
// @Param        request  body      model.ChartPatch  true  "Fields to change"
// @Success      200      {object}  model.ChartSpec
// @Failure      400      {object}  model.Response
// @Failure      404      {object}  model.Response
// @Router       /api/v1/sessions/{id}/charts/{chartId} [patch]
func (c *SessionController) UpdateChart(ctx *gin.Context) {
	var patch model.ChartPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	updated, err := c.sessionService.UpdateChart(ctx.Request.Context(), ctx.Param("id"), ctx.Param("chartId"), patch)
	if err != nil {
		respondError(ctx, err, "Update chart")
		return
	}
	ctx.JSON(http.StatusOK, updated)
}

// RemoveChart godoc
// @Summary      Remove a chart
// @Tags         charts
// @Param        id       path  string  true  "Session id"
// @Param        chartId  path  string  true  "Chart id"
// @Success      204
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id}/charts/{chartId} [delete]
func (c *SessionController) RemoveChart(ctx *gin.Context) {
	if err := c.sessionService.RemoveChart(ctx.Request.Context(), ctx.Param("id"), ctx.Param("chartId")); err != nil {
		respondError(ctx, err, "Remove chart")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ChartData godoc
// @Summary      Plot data of a chart
// @Description  Aggregates the dataset for the chart. Month labels come back in calendar order.
// @Tags         charts
// @Produce      json
// @Param        id       path      string  true  "Session id"
// @Param        chartId  path      string  true  "Chart id"
// @Success      200      {object}  analysis.ChartData
// @Failure      400      {object}  model.Response
// @Failure      404      {object}  model.Response
// @Router       /api/v1/sessions/{id}/charts/{chartId}/data [get]
func (c *SessionController) ChartData(ctx *gin.Context) {
	data, err := c.sessionService.ChartData(ctx.Request.Context(), ctx.Param("id"), ctx.Param("chartId"))
	if err != nil {
		respondError(ctx, err, "Chart data")
		return
	}
	ctx.JSON(http.StatusOK, data)
}

// Columns godoc
// @Summary      Detected column types
// @Tags         columns
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  dto.ColumnsResponse
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id}/columns [get]
func (c *SessionController) Columns(ctx *gin.Context) {
	schema, err := c.sessionService.Columns(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Columns")
		return
	}
	ctx.JSON(http.StatusOK, dto.ColumnsResponse{
		Columns:     schema,
		Numeric:     schema.Numeric(),
		Categorical: schema.Categorical(),
		Dates:       schema.Dates(),
	})
}

// ColumnStats godoc
// @Summary      Statistics of one column
// @Tags         columns
// @Produce      json
// @Param        id      path      string  true  "Session id"
// @Param        column  path      string  true  "Column name"
// @Success      200     {object}  dto.ColumnStatsResponse
// @Failure      400     {object}  model.Response
// @Failure      404     {object}  model.Response
// @Router       /api/v1/sessions/{id}/columns/{column}/stats [get]
func (c *SessionController) ColumnStats(ctx *gin.Context) {
	column := ctx.Param("column")
	stats, unique, err := c.sessionService.ColumnStats(ctx.Request.Context(), ctx.Param("id"), column)
	if err != nil {
		respondError(ctx, err, "Column stats")
		return
	}
	ctx.JSON(http.StatusOK, dto.ColumnStatsResponse{Column: column, Stats: stats, UniqueValues: unique})
}

// Correlation godoc
// @Summary      Pearson correlation of two columns
// @Tags         columns
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Param        a    query     string  true  "First column"
// @Param        b    query     string  true  "Second column"
// @Success      200  {object}  dto.CorrelationResponse
// @Failure      400  {object}  model.Response
// @Failure      404  {object}  model.Response
// @Router       /api/v1/sessions/{id}/correlation [get]
func (c *SessionController) Correlation(ctx *gin.Context) {
	a, b := ctx.Query("a"), ctx.Query("b")
	if a == "" || b == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Query parameters a and b are required", nil))
		return
	}
	r, err := c.sessionService.Correlation(ctx.Request.Context(), ctx.Param("id"), a, b)
	if err != nil {
		respondError(ctx, err, "Correlation")
		return
	}
	ctx.JSON(http.StatusOK, dto.CorrelationResponse{ColumnA: a, ColumnB: b, Correlation: r})
}

// ExampleQuestions godoc
// @Summary      Example questions
// @Description  Questions the local engine answers well, offered as prompts in the chat panel.
// @Tags         analysis
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/v1/questions [get]
func (c *SessionController) ExampleQuestions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, analysis.ExampleQuestions)
}
