package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/store"
)

func salesDataset(t *testing.T) *model.Dataset {
	t.Helper()
	ds, err := model.NewDataset("销售数据", []string{"月份", "销售额", "成本", "地区"}, []model.Row{
		{"月份": model.StringValue("3月"), "销售额": model.NumberValue(200), "成本": model.NumberValue(120), "地区": model.StringValue("东区")},
		{"月份": model.StringValue("1月"), "销售额": model.NumberValue(100), "成本": model.NumberValue(60), "地区": model.StringValue("东区")},
		{"月份": model.StringValue("2月"), "销售额": model.NumberValue(300), "成本": model.NumberValue(180), "地区": model.StringValue("西区")},
	})
	require.NoError(t, err)
	return ds
}

func newTestSessionService(t *testing.T) (SessionService, store.KV) {
	t.Helper()
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	return NewSessionService(kv, store.DefaultTTLPolicy()), kv
}

func TestSessionService_LoadAndGet(t *testing.T) {
	svc, kv := newTestSessionService(t)
	ctx := context.Background()

	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.Charts, "loading recommends a default chart set")

	keys, err := kv.Keys(ctx, store.PrefixSession)
	require.NoError(t, err)
	assert.Equal(t, []string{store.PrefixSession + session.ID}, keys)

	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, 3, got.Dataset.RowCount())
	assert.Equal(t, session.Dataset.Columns, got.Dataset.Columns)
	v, ok := got.Dataset.Rows[0]["销售额"].Float()
	assert.True(t, ok)
	assert.Equal(t, 200.0, v)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Clear(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()
	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, session.ID))
	_, err = svc.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Clear(ctx, session.ID), ErrSessionNotFound)
}

func TestSessionService_SetAPIKey(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()
	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)

	require.NoError(t, svc.SetAPIKey(ctx, session.ID, "sk-test"))
	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got.APIKey)
	assert.False(t, got.UpdatedAt.Before(session.UpdatedAt))
}

func TestSessionService_ChartLifecycle(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()
	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)
	initial := len(session.Charts)

	added, err := svc.AddChart(ctx, session.ID, model.ChartSpec{
		Type: model.ChartLine, Title: "成本", XField: "月份", YField: "成本", Aggregation: model.AggSum,
	})
	require.NoError(t, err)
	assert.Contains(t, added.ID, "line-")

	charts, err := svc.Charts(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, charts, initial+1)

	data, err := svc.ChartData(ctx, session.ID, added.ID)
	require.NoError(t, err)
	require.Len(t, data.Points, 3)
	assert.Equal(t, "1月", data.Points[0].Name)
	assert.Equal(t, 60.0, data.Points[0].Value)

	title := "平均成本"
	agg := model.AggAvg
	updated, err := svc.UpdateChart(ctx, session.ID, added.ID, model.ChartPatch{Title: &title, Aggregation: &agg})
	require.NoError(t, err)
	assert.Equal(t, "平均成本", updated.Title)
	assert.Equal(t, model.AggAvg, updated.Aggregation)
	assert.Equal(t, added.ID, updated.ID)

	badField := "利润"
	_, err = svc.UpdateChart(ctx, session.ID, added.ID, model.ChartPatch{YField: &badField})
	assert.ErrorIs(t, err, model.ErrUnknownField)

	require.NoError(t, svc.RemoveChart(ctx, session.ID, added.ID))
	assert.ErrorIs(t, svc.RemoveChart(ctx, session.ID, added.ID), ErrChartNotFound)
	_, err = svc.ChartData(ctx, session.ID, added.ID)
	assert.ErrorIs(t, err, ErrChartNotFound)

	charts, err = svc.Charts(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, charts, initial)
}

func TestSessionService_AddChartValidates(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()
	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)

	_, err = svc.AddChart(ctx, session.ID, model.ChartSpec{Type: "donut", XField: "月份", YField: "销售额"})
	assert.ErrorIs(t, err, model.ErrInvalidChartType)

	_, err = svc.AddChart(ctx, session.ID, model.ChartSpec{Type: model.ChartBar, XField: "季度", YField: "销售额"})
	assert.ErrorIs(t, err, model.ErrUnknownField)

	// A colliding id is replaced rather than duplicated.
	existing := session.Charts[0].ID
	added, err := svc.AddChart(ctx, session.ID, model.ChartSpec{ID: existing, Type: model.ChartBar, XField: "地区", YField: "销售额"})
	require.NoError(t, err)
	assert.NotEqual(t, existing, added.ID)
}

func TestSessionService_ColumnsAndStats(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()
	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)

	schema, err := svc.Columns(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"销售额", "成本"}, schema.Numeric())
	typ, ok := schema.TypeOf("地区")
	assert.True(t, ok)
	assert.Equal(t, analysis.TypeString, typ)

	stats, unique, err := svc.ColumnStats(ctx, session.ID, "销售额")
	require.NoError(t, err)
	assert.Equal(t, 600.0, stats.Sum)
	assert.Equal(t, 300.0, stats.Max)
	assert.Len(t, unique, 3)

	_, _, err = svc.ColumnStats(ctx, session.ID, "利润")
	assert.ErrorIs(t, err, model.ErrUnknownField)

	r, err := svc.Correlation(ctx, session.ID, "销售额", "成本")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-9)

	_, err = svc.Correlation(ctx, session.ID, "销售额", "利润")
	assert.ErrorIs(t, err, model.ErrUnknownField)
}

func TestSessionService_ConcurrentUpdates(t *testing.T) {
	svc, _ := newTestSessionService(t)
	ctx := context.Background()
	session, err := svc.Load(ctx, salesDataset(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Update(ctx, session.ID, func(s *model.Session) error {
				s.Messages = append(s.Messages, model.NewMessage(model.RoleUser, "hi"))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := svc.Messages(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}
