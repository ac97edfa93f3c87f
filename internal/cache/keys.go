// Package cache is a lookaside cache for remote analysis answers to common
// questions, stored in the KV store under the cache prefix.
package cache

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	keyNamespace      = "edge-insight"
	maxQuestionInKey  = 50
	KindAnalyze       = "analyze"
	unknownDatasetKey = "unknown"
)

// HotQuestions are the phrases whose answers are worth caching.
var HotQuestions = []string{
	"数据概览",
	"最高值分析",
	"趋势变化",
	"占比分布",
	"平均值",
	"总和",
}

// ShouldCache reports whether question mentions one of the hot questions.
func ShouldCache(question string) bool {
	q := strings.ToLower(question)
	for _, hot := range HotQuestions {
		if strings.Contains(q, strings.ToLower(hot)) {
			return true
		}
	}
	return false
}

// CacheKey renders edge-insight:<kind>:<k=v&...> with params sorted by name.
func CacheKey(kind string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, k := range names {
		pairs[i] = k + "=" + params[k]
	}
	return keyNamespace + ":" + kind + ":" + strings.Join(pairs, "&")
}

// AnalyzeKey is the cache key of an analyze request.
func AnalyzeKey(question, datasetName string, columns []string) string {
	if datasetName == "" {
		datasetName = unknownDatasetKey
	}
	q := []rune(question)
	if len(q) > maxQuestionInKey {
		q = q[:maxQuestionInKey]
	}
	return CacheKey(KindAnalyze, map[string]string{
		"question":    string(q),
		"datasetName": datasetName,
		"columns":     strings.Join(columns, ","),
	})
}

// SimpleHash is the 31-multiplier string hash over UTF-16 code units with
// 32-bit wraparound, rendered as the base-36 absolute value.
func SimpleHash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return strconv.FormatInt(n, 36)
}
