package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/store"
)

func testConfig(enabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.Cache.Enabled = enabled
	cfg.Cache.ResponseTTL = 5 * time.Minute
	return cfg
}

func TestShouldCache(t *testing.T) {
	assert.True(t, ShouldCache("给我一个数据概览"))
	assert.True(t, ShouldCache("各地区的平均值是多少"))
	assert.False(t, ShouldCache("哪个月最好"))
}

func TestCacheKey(t *testing.T) {
	key := CacheKey("analyze", map[string]string{"question": "q", "datasetName": "d", "columns": "a,b"})
	assert.Equal(t, "edge-insight:analyze:columns=a,b&datasetName=d&question=q", key)
	assert.Equal(t, "edge-insight:chart:", CacheKey("chart", nil))
}

func TestAnalyzeKey(t *testing.T) {
	long := strings.Repeat("数", 60)
	key := AnalyzeKey(long, "", []string{"月份", "销售额"})
	assert.Equal(t, "edge-insight:analyze:columns=月份,销售额&datasetName=unknown&question="+strings.Repeat("数", 50), key)
}

func TestSimpleHash(t *testing.T) {
	assert.Equal(t, "0", SimpleHash(""))
	assert.Equal(t, "2p", SimpleHash("a"))
	assert.Equal(t, "2e9", SimpleHash("ab"))
	assert.Equal(t, SimpleHash("数据概览"), SimpleHash("数据概览"))
	assert.NotEqual(t, SimpleHash("数据概览"), SimpleHash("趋势变化"))
}

type answer struct {
	Text string `json:"text"`
}

func TestAnalysisCache_Lookaside(t *testing.T) {
	ctx := context.Background()
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	c := NewAnalysisCache(kv, testConfig(true))

	key := AnalyzeKey("数据概览", "sales.csv", []string{"月份"})
	var got answer
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Put(ctx, key, answer{Text: "总计 100"}))
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "总计 100", got.Text)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Enabled)
	assert.Equal(t, len(HotQuestions), stats.HotQuestions)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, map[string]int64{"AI_RESPONSE": 300}, stats.TTL)
}

func TestAnalysisCache_Clear(t *testing.T) {
	ctx := context.Background()
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	c := NewAnalysisCache(kv, testConfig(true))

	require.NoError(t, c.Put(ctx, AnalyzeKey("数据概览", "a.csv", nil), answer{Text: "a"}))
	require.NoError(t, c.Put(ctx, AnalyzeKey("数据概览", "b.csv", nil), answer{Text: "b"}))
	require.NoError(t, kv.Put(ctx, "data:s1", []byte("{}"), 0))

	cleared, err := c.Clear(ctx, "datasetName=a.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	cleared, err = c.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, err = kv.Get(ctx, "data:s1")
	assert.NoError(t, err, "clearing the cache leaves other prefixes alone")
}

func TestAnalysisCache_Disabled(t *testing.T) {
	ctx := context.Background()
	kv, err := store.NewInMemoryKV(nil)
	require.NoError(t, err)
	c := NewAnalysisCache(kv, testConfig(false))

	require.NoError(t, c.Put(ctx, "k", answer{Text: "x"}))
	var got answer
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	keys, err := kv.Keys(ctx, store.PrefixCache)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
