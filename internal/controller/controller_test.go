package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/cache"
	"edgeinsight-backend/internal/dto"
	"edgeinsight-backend/internal/elasticsearch"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/parser"
	"edgeinsight-backend/internal/service"
	"edgeinsight-backend/internal/store"
)

type stubLLM struct {
	answer  string
	err     error
	lastKey string
}

func (s *stubLLM) Analyze(ctx context.Context, apiKey, question string, dataset model.DatasetInfo) (string, error) {
	s.lastKey = apiKey
	return s.answer, s.err
}

func (s *stubLLM) Chat(ctx context.Context, apiKey string, messages []dto.ChatMessage, dataset *dto.ChatDataset) (string, error) {
	s.lastKey = apiKey
	return s.answer, s.err
}

type nopArchive struct{}

func (nopArchive) Record(model.ArchivedAnswer)        {}
func (nopArchive) FlushPending(context.Context) error { return nil }
func (nopArchive) Pending() int                       { return 0 }

type stubHistoryRepo struct{ err error }

func (r stubHistoryRepo) Search(ctx context.Context, req dto.HistorySearchRequest) (*dto.HistorySearchResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &dto.HistorySearchResponse{Answers: []model.ArchivedAnswer{}, Page: req.Page, Size: req.Size}, nil
}

type testServer struct {
	router *gin.Engine
	llm    *stubLLM
}

func newTestServer(t *testing.T, historyErr error) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Version = "1.0.0"
	cfg.Server.MaxUploadBytes = 1 << 20
	cfg.Analysis.RequestSampleRows = 50
	cfg.Cache.Enabled = true
	cfg.Cache.ResponseTTL = 5 * time.Minute

	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	ttl := store.DefaultTTLPolicy()

	llm := &stubLLM{}
	sessions := service.NewSessionService(kv, ttl)
	analysisCache := cache.NewAnalysisCache(kv, cfg)
	analysisSvc := service.NewAnalysisService(cfg, llm, sessions, analysisCache, nopArchive{})

	router := gin.New()
	RegisterEdgeRoutes(router, NewEdgeController(analysisSvc, cfg))
	RegisterKVRoutes(router, NewKVController(service.NewKVService(kv, ttl), analysisCache, analysisSvc))
	RegisterSessionRoutes(router, NewSessionController(sessions, analysisSvc, parser.NewDatasetParser(), cfg))
	RegisterHistoryRoutes(router, NewHistoryController(service.NewHistoryService(stubHistoryRepo{err: historyErr})))
	return &testServer{router: router, llm: llm}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const salesCSV = "月份,销售额,地区\n1月,100,东区\n2月,300,西区\n3月,200,东区\n"

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/health", nil, "X-Edge-Country", "CN")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "CN", resp.Edge.Country)
	assert.Equal(t, "unknown", resp.Edge.Colo)
	assert.Equal(t, "unknown", resp.Edge.Region)
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/analyze", map[string]string{"question": "最高"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "缺少必要参数", decode[dto.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/api/analyze", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := dto.AnalyzeRequest{
		Question: "哪个地区最高",
		Dataset: &model.DatasetInfo{
			Name:       "销售",
			Columns:    []string{"地区", "销售额"},
			SampleData: []model.Row{{"地区": model.StringValue("东区"), "销售额": model.NumberValue(1)}},
			RowCount:   1,
		},
	}
	s.llm.answer = "东区最高，为 1"
	w = s.do(t, http.MethodPost, "/api/analyze", req, APIKeyHeader, "sk-user")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.AnalyzeResponse](t, w)
	assert.Equal(t, "东区最高，为 1", resp.Answer)
	assert.Len(t, resp.Charts, 1)
	assert.Equal(t, "sk-user", s.llm.lastKey)

	s.llm.err = &service.APIError{StatusCode: 500}
	w = s.do(t, http.MethodPost, "/api/analyze", req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errResp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "分析失败", errResp.Error)
	assert.Equal(t, "API调用失败: 500", errResp.Message)
}

func TestChatEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/chat", map[string]interface{}{"messages": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "缺少消息", decode[dto.ErrorResponse](t, w).Error)

	s.llm.answer = "你好"
	w = s.do(t, http.MethodPost, "/api/chat", dto.ChatRequest{Messages: []dto.ChatMessage{{Role: "user", Content: "hi"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "你好", decode[dto.ChatResponse](t, w).Content)

	s.llm.err = errors.New("timeout")
	w = s.do(t, http.MethodPost, "/api/chat", dto.ChatRequest{Messages: []dto.ChatMessage{{Role: "user", Content: "hi"}}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "对话失败", decode[dto.ErrorResponse](t, w).Error)
}

func TestKVEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/kv/get", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "缺少sessionId", decode[dto.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/api/kv/store", `{"sessionId":"s1","data":{"rows":3}}`)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decode[dto.KVStoreResponse](t, w)
	assert.True(t, stored.Success)
	assert.Equal(t, "data:s1", stored.Key)

	w = s.do(t, http.MethodGet, "/api/kv/get?sessionId=s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.KVGetResponse](t, w)
	require.NotNil(t, got.Data)
	assert.JSONEq(t, `{"rows":3}`, string(got.Data.Data))
	assert.NotZero(t, got.Data.CreatedAt)

	w = s.do(t, http.MethodDelete, "/api/kv/delete?sessionId=s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/kv/get?sessionId=s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())
}

func TestCacheEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.llm.answer = "概览"
	req := dto.AnalyzeRequest{Question: "数据概览", Dataset: &model.DatasetInfo{Name: "销售", Columns: []string{"a"}}}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/analyze", req).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/analyze", req).Code)

	w := s.do(t, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[cache.Stats](t, w)
	assert.True(t, stats.Enabled)
	assert.Equal(t, len(cache.HotQuestions), stats.HotQuestions)
	assert.Equal(t, int64(300), stats.TTL["AI_RESPONSE"])
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)

	w = s.do(t, http.MethodDelete, "/api/cache?pattern=nomatch", nil)
	assert.Equal(t, 0, decode[dto.CacheClearResponse](t, w).Cleared)
	w = s.do(t, http.MethodDelete, "/api/cache?pattern=analyze", nil)
	assert.Equal(t, 1, decode[dto.CacheClearResponse](t, w).Cleared)

	w = s.do(t, http.MethodPost, "/api/cache/warmup", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionUploadAndCharts(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.upload(t, "sales.txt", salesCSV)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, "sales.csv", salesCSV)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[dto.SessionView](t, w)
	assert.Equal(t, "sales.csv", view.DatasetName)
	assert.Equal(t, 3, view.RowCount)
	assert.Equal(t, []string{"月份", "销售额", "地区"}, view.Columns)
	require.NotEmpty(t, view.Charts)
	base := "/api/v1/sessions/" + view.ID

	w = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, base+"/charts", dto.ChartCreateRequest{Type: model.ChartBar, XField: "地区", YField: "利润"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, base+"/charts", dto.ChartCreateRequest{Type: model.ChartLine, Title: "趋势", XField: "月份", YField: "销售额", Aggregation: model.AggSum})
	require.Equal(t, http.StatusCreated, w.Code)
	chart := decode[model.ChartSpec](t, w)

	w = s.do(t, http.MethodGet, base+"/charts/"+chart.ID+"/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode[analysis.ChartData](t, w)
	require.Len(t, data.Points, 3)
	assert.Equal(t, "1月", data.Points[0].Name)

	w = s.do(t, http.MethodPatch, base+"/charts/"+chart.ID, `{"type":"area"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ChartArea, decode[model.ChartSpec](t, w).Type)

	w = s.do(t, http.MethodDelete, base+"/charts/"+chart.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, base+"/charts/"+chart.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, base+"/charts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.ChartSpec](t, w), len(view.Charts))
}

func TestSessionColumnsAndStats(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/sessions/paste", dto.PasteRequest{Text: salesCSV})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[dto.SessionView](t, w)
	assert.Equal(t, parser.PastedDatasetName, view.DatasetName)
	base := "/api/v1/sessions/" + view.ID

	w = s.do(t, http.MethodGet, base+"/columns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cols := decode[dto.ColumnsResponse](t, w)
	assert.Equal(t, []string{"销售额"}, cols.Numeric)
	assert.Equal(t, []string{"月份"}, cols.Dates)

	w = s.do(t, http.MethodGet, base+"/columns/销售额/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[dto.ColumnStatsResponse](t, w)
	assert.Equal(t, 600.0, stats.Stats.Sum)
	assert.Equal(t, 200.0, stats.Stats.Median)

	w = s.do(t, http.MethodGet, base+"/columns/利润/stats", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, base+"/correlation?a=销售额", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, base+"/correlation?a=销售额&b=销售额", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1.0, decode[dto.CorrelationResponse](t, w).Correlation, 1e-9)
}

func TestSessionAskAndMessages(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.upload(t, "sales.csv", salesCSV)
	require.Equal(t, http.StatusCreated, w.Code)
	base := "/api/v1/sessions/" + decode[dto.SessionView](t, w).ID

	s.llm.err = service.ErrMissingCredential
	w = s.do(t, http.MethodPost, base+"/ask", dto.AskRequest{Question: "总和是多少"})
	require.Equal(t, http.StatusOK, w.Code)
	ask := decode[dto.AskResponse](t, w)
	assert.Equal(t, model.SourceLocal, ask.Source)
	assert.Contains(t, ask.AssistantMessage.Content, "600")
	assert.Contains(t, ask.AssistantMessage.Content, "配置通义千问API密钥")

	w = s.do(t, http.MethodPut, base+"/apikey", dto.APIKeyRequest{APIKey: "sk-session"})
	require.Equal(t, http.StatusNoContent, w.Code)
	s.llm.err = nil
	s.llm.answer = "总和为 600"
	w = s.do(t, http.MethodPost, base+"/ask", dto.AskRequest{Question: "总和是多少"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.SourceRemote, decode[dto.AskResponse](t, w).Source)
	assert.Equal(t, "sk-session", s.llm.lastKey)

	w = s.do(t, http.MethodGet, base+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Message](t, w), 4)

	w = s.do(t, http.MethodPost, base+"/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodPost, base+"/ask", dto.AskRequest{Question: "总和"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExampleQuestions(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/v1/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, analysis.ExampleQuestions, decode[[]string](t, w))
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/v1/history?startTime=bad&endTime=1714381200000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/history?startTime=1714381200000&endTime=1714377600000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/history?startTime=2024-04-29T08:00:00Z&endTime=2024-04-29T09:00:00Z&size=20&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.HistorySearchResponse](t, w)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 20, resp.Size)
}

func TestHistoryEndpoint_ArchiveDisabled(t *testing.T) {
	s := newTestServer(t, elasticsearch.ErrArchiveDisabled)
	w := s.do(t, http.MethodGet, "/api/v1/history?startTime=2024-04-29T08:00:00Z&endTime=2024-04-29T09:00:00Z", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistoryEndpoint_RepositoryError(t *testing.T) {
	s := newTestServer(t, errors.New("search timed out"))
	w := s.do(t, http.MethodGet, "/api/v1/history?startTime=2024-04-29T08:00:00Z&endTime=2024-04-29T09:00:00Z", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
