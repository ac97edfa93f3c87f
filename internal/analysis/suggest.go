package analysis

import (
	"fmt"
	"strings"

	"edgeinsight-backend/internal/model"
)

var (
	trendKeywords = []string{"趋势", "变化", "时间"}
	shareKeywords = []string{"占比", "比例", "分布"}
)

// SuggestCharts proposes at most one chart for a question answered by the
// remote model. It needs a categorical and a numeric column.
func SuggestCharts(question string, ds *model.Dataset) []model.ChartSpec {
	if ds == nil {
		return []model.ChartSpec{}
	}
	schema := DetectColumnTypes(ds.Rows, ds.Columns)
	numeric, categorical := schema.Numeric(), schema.Categorical()
	if len(numeric) == 0 || len(categorical) == 0 {
		return []model.ChartSpec{}
	}

	q := strings.ToLower(question)
	x, y := categorical[0], numeric[0]
	var spec model.ChartSpec
	switch {
	case containsAny(q, trendKeywords):
		spec = model.NewChartSpec(model.ChartLine, fmt.Sprintf("%s趋势", y), x, y, model.AggSum)
	case containsAny(q, shareKeywords):
		spec = model.NewChartSpec(model.ChartPie, fmt.Sprintf("%s占比", x), x, y, model.AggSum)
	default:
		spec = model.NewChartSpec(model.ChartBar, fmt.Sprintf("%s的%s对比", x, y), x, y, model.AggSum)
	}
	return []model.ChartSpec{spec}
}

// RecommendCharts builds the default chart set shown right after a dataset
// is loaded.
func RecommendCharts(ds *model.Dataset) []model.ChartSpec {
	out := []model.ChartSpec{}
	if ds == nil {
		return out
	}
	schema := DetectColumnTypes(ds.Rows, ds.Columns)
	numeric, categorical, dates := schema.Numeric(), schema.Categorical(), schema.Dates()

	if len(categorical) > 0 && len(numeric) > 0 {
		out = append(out, model.NewChartSpec(model.ChartBar,
			fmt.Sprintf("%s的%s分布", categorical[0], numeric[0]), categorical[0], numeric[0], model.AggSum))
	}
	if len(dates) > 0 && len(numeric) > 0 {
		out = append(out, model.NewChartSpec(model.ChartLine,
			fmt.Sprintf("%s趋势", numeric[0]), dates[0], numeric[0], model.AggSum))
	}
	if len(categorical) > 0 && len(numeric) > 0 {
		out = append(out, model.NewChartSpec(model.ChartPie,
			fmt.Sprintf("%s占比", categorical[0]), categorical[0], numeric[0], model.AggSum))
	}
	if len(numeric) >= 2 {
		out = append(out, model.NewChartSpec(model.ChartScatter,
			fmt.Sprintf("%s vs %s", numeric[0], numeric[1]), numeric[0], numeric[1], ""))
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
