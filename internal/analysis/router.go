package analysis

import (
	"fmt"
	"sort"
	"strings"

	"edgeinsight-backend/internal/model"
)

// Category is the kind of question the router recognised.
type Category string

const (
	CategoryMax          Category = "max"
	CategoryMin          Category = "min"
	CategoryTrend        Category = "trend"
	CategoryDistribution Category = "distribution"
	CategoryAverage      Category = "average"
	CategorySum          Category = "sum"
	CategoryCategories   Category = "categories"
	CategoryOverview     Category = "overview"
)

const (
	noDatasetAnswer = "请先上传数据后再进行分析。"
	maxListedValues = 10
)

// ExampleQuestions are offered to the user after a generic overview.
var ExampleQuestions = []string{
	`"销售额最高的是哪个月？"`,
	`"分析一下趋势变化"`,
	`"各产品的占比是多少？"`,
}

// Answer is the local engine's reply to one question.
type Answer struct {
	Category Category          `json:"category"`
	Content  string            `json:"content"`
	Insights []string          `json:"insights,omitempty"`
	Charts   []model.ChartSpec `json:"charts,omitempty"`
}

type route struct {
	category Category
	keywords []string
	handle   func(question string, t *table) Answer
}

func (r route) matches(question string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, k := range r.keywords {
		if strings.Contains(question, k) {
			return true
		}
	}
	return false
}

// routes are evaluated in order; the first match answers.
var routes = []route{
	{CategoryMax, []string{"最高", "最大", "max"}, answerMax},
	{CategoryMin, []string{"最低", "最小", "min"}, answerMin},
	{CategoryTrend, []string{"趋势", "变化", "trend"}, answerTrend},
	{CategoryDistribution, []string{"占比", "比例", "分布"}, answerDistribution},
	{CategoryAverage, []string{"平均", "均值", "avg"}, answerAverage},
	{CategorySum, []string{"总", "合计", "sum"}, answerSum},
	{CategoryCategories, []string{"有哪些", "类别", "种类"}, answerCategories},
	{CategoryOverview, nil, answerOverview},
}

// table is a dataset with its detected schema, shared by the handlers.
type table struct {
	dataset     *model.Dataset
	schema      Schema
	numeric     []string
	categorical []string
}

func newTable(ds *model.Dataset) *table {
	schema := DetectColumnTypes(ds.Rows, ds.Columns)
	return &table{
		dataset:     ds,
		schema:      schema,
		numeric:     schema.Numeric(),
		categorical: schema.Categorical(),
	}
}

func (t *table) rows() []model.Row { return t.dataset.Rows }

// Classify returns the category a question is routed to.
func Classify(question string) Category {
	q := strings.ToLower(question)
	for _, r := range routes {
		if r.matches(q) {
			return r.category
		}
	}
	return CategoryOverview
}

// Route answers a question from the dataset alone.
func Route(question string, ds *model.Dataset) Answer {
	if ds == nil {
		return Answer{Category: CategoryOverview, Content: noDatasetAnswer}
	}
	q := strings.ToLower(question)
	t := newTable(ds)
	for _, r := range routes {
		if r.matches(q) {
			ans := r.handle(q, t)
			ans.Category = r.category
			return ans
		}
	}
	return answerOverview(q, t)
}

// pickColumn returns the first column whose lower-cased name appears in the
// question, or the first column when none is mentioned.
func pickColumn(question string, columns []string) string {
	for _, c := range columns {
		if strings.Contains(question, strings.ToLower(c)) {
			return c
		}
	}
	return columns[0]
}

func insufficient(task string, needNumeric, needCategorical bool) Answer {
	var missing []string
	if needNumeric {
		missing = append(missing, "数值列")
	}
	if needCategorical {
		missing = append(missing, "分类列")
	}
	return Answer{
		Content: fmt.Sprintf("当前数据缺少可用的%s，无法进行%s。", strings.Join(missing, "和"), task),
	}
}

func answerMax(q string, t *table) Answer {
	if len(t.numeric) == 0 {
		return insufficient("最大值分析", true, false)
	}
	col := pickColumn(q, t.numeric)
	stats := CalculateStats(t.rows(), col)
	if len(t.categorical) == 0 {
		return Answer{Content: fmt.Sprintf("**%s**的最大值为 **%s**。", col, FormatLocale(stats.Max))}
	}

	groupCol := t.categorical[0]
	top := maxPoint(AggregateData(t.rows(), groupCol, col, model.AggSum))
	return Answer{
		Content: fmt.Sprintf("根据数据分析，**%s**为\"**%s**\"时，**%s**最高，达到 **%s**。",
			groupCol, top.Name, col, FormatLocale(top.Value)),
		Insights: []string{
			fmt.Sprintf("%s的整体最大值为 %s", col, FormatLocale(stats.Max)),
			fmt.Sprintf("%s的平均值为 %s", col, FormatLocale(stats.Avg)),
		},
		Charts: []model.ChartSpec{
			model.NewChartSpec(model.ChartBar, fmt.Sprintf("各%s的%s对比", groupCol, col), groupCol, col, model.AggSum),
		},
	}
}

func answerMin(q string, t *table) Answer {
	if len(t.numeric) == 0 {
		return insufficient("最小值分析", true, false)
	}
	col := pickColumn(q, t.numeric)
	stats := CalculateStats(t.rows(), col)
	if len(t.categorical) == 0 {
		return Answer{Content: fmt.Sprintf("**%s**的最小值为 **%s**。", col, FormatLocale(stats.Min))}
	}

	groupCol := t.categorical[0]
	bottom := minPoint(AggregateData(t.rows(), groupCol, col, model.AggSum))
	return Answer{
		Content: fmt.Sprintf("根据数据分析，**%s**为\"**%s**\"时，**%s**最低，为 **%s**。",
			groupCol, bottom.Name, col, FormatLocale(bottom.Value)),
		Insights: []string{
			fmt.Sprintf("%s的整体最小值为 %s", col, FormatLocale(stats.Min)),
		},
	}
}

func answerTrend(q string, t *table) Answer {
	if len(t.numeric) == 0 || len(t.categorical) == 0 {
		return insufficient("趋势分析", len(t.numeric) == 0, len(t.categorical) == 0)
	}
	valueCol := t.numeric[0]
	timeCol := t.categorical[0]
	if dates := t.schema.Dates(); len(dates) > 0 {
		timeCol = dates[0]
	}
	points := AggregateData(t.rows(), timeCol, valueCol, model.AggSum)
	first, last := points[0].Value, points[len(points)-1].Value

	direction := "平稳"
	switch {
	case last > first:
		direction = "上升"
	case last < first:
		direction = "下降"
	}

	var content string
	if first == 0 {
		content = fmt.Sprintf("**%s**整体呈**%s**趋势，首期数值为 0，无法计算变化率。", valueCol, direction)
	} else {
		rate := (last - first) / first * 100
		content = fmt.Sprintf("**%s**整体呈**%s**趋势，从首期到末期变化率为 **%s%%**。", valueCol, direction, formatPercent(rate))
	}

	high, low := maxPoint(points), minPoint(points)
	return Answer{
		Content: content,
		Insights: []string{
			fmt.Sprintf("数据共有 %d 个时间点", len(points)),
			fmt.Sprintf("最高点: %s", FormatLocale(high.Value)),
			fmt.Sprintf("最低点: %s", FormatLocale(low.Value)),
		},
		Charts: []model.ChartSpec{
			model.NewChartSpec(model.ChartLine, fmt.Sprintf("%s趋势图", valueCol), timeCol, valueCol, model.AggSum),
		},
	}
}

func answerDistribution(q string, t *table) Answer {
	if len(t.numeric) == 0 || len(t.categorical) == 0 {
		return insufficient("占比分析", len(t.numeric) == 0, len(t.categorical) == 0)
	}
	groupCol := pickColumn(q, t.categorical)
	valueCol := t.numeric[0]
	points := AggregateData(t.rows(), groupCol, valueCol, model.AggSum)
	total := 0.0
	for _, p := range points {
		total += p.Value
	}

	ranked := make([]AggregatedPoint, len(points))
	copy(ranked, points)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**的%s分布如下：\n\n", groupCol, valueCol)
	for i, p := range ranked {
		share := 0.0
		if total != 0 {
			share = p.Value / total * 100
		}
		fmt.Fprintf(&b, "%d. **%s**: %s (%s%%)\n", i+1, p.Name, FormatLocale(p.Value), formatPercent(share))
	}

	return Answer{
		Content: b.String(),
		Insights: []string{
			fmt.Sprintf("共有 %d 个类别", len(points)),
			fmt.Sprintf("总计: %s", FormatLocale(round2(total))),
		},
		Charts: []model.ChartSpec{
			model.NewChartSpec(model.ChartPie, fmt.Sprintf("%s占比分布", groupCol), groupCol, valueCol, model.AggSum),
		},
	}
}

func answerAverage(q string, t *table) Answer {
	if len(t.numeric) == 0 {
		return insufficient("平均值分析", true, false)
	}
	col := pickColumn(q, t.numeric)
	stats := CalculateStats(t.rows(), col)
	return Answer{
		Content: fmt.Sprintf("**%s**的平均值为 **%s**。", col, FormatLocale(stats.Avg)),
		Insights: []string{
			fmt.Sprintf("最大值: %s", FormatLocale(stats.Max)),
			fmt.Sprintf("最小值: %s", FormatLocale(stats.Min)),
			fmt.Sprintf("中位数: %s", FormatLocale(stats.Median)),
			fmt.Sprintf("数据量: %d 条", stats.Count),
		},
	}
}

func answerSum(q string, t *table) Answer {
	if len(t.numeric) == 0 {
		return insufficient("求和分析", true, false)
	}
	col := pickColumn(q, t.numeric)
	stats := CalculateStats(t.rows(), col)
	return Answer{
		Content: fmt.Sprintf("**%s**的总和为 **%s**。", col, FormatLocale(stats.Sum)),
		Insights: []string{
			fmt.Sprintf("数据量: %d 条", stats.Count),
			fmt.Sprintf("平均值: %s", FormatLocale(stats.Avg)),
		},
	}
}

func answerCategories(q string, t *table) Answer {
	if len(t.categorical) == 0 {
		return insufficient("类别统计", false, true)
	}
	col := pickColumn(q, t.categorical)
	values := UniqueValues(t.rows(), col)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**共有 **%d** 个不同的值：\n\n", col, len(values))
	for i, v := range values {
		if i == maxListedValues {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.String())
	}
	if len(values) > maxListedValues {
		fmt.Fprintf(&b, "\n...等共 %d 个", len(values))
	}
	return Answer{Content: b.String()}
}

func answerOverview(_ string, t *table) Answer {
	ds := t.dataset
	var b strings.Builder
	b.WriteString("我来为您分析这份数据：\n\n")
	b.WriteString("**数据概览**\n")
	fmt.Fprintf(&b, "- 数据名称: %s\n", ds.Name)
	fmt.Fprintf(&b, "- 总行数: %d\n", len(ds.Rows))
	fmt.Fprintf(&b, "- 列数: %d\n\n", len(ds.Columns))

	b.WriteString("**数值列统计**\n")
	for i, col := range t.numeric {
		if i == 3 {
			break
		}
		stats := CalculateStats(t.rows(), col)
		fmt.Fprintf(&b, "- %s: 总和 %s, 平均 %s\n", col, FormatLocale(stats.Sum), FormatLocale(stats.Avg))
	}

	ans := Answer{
		Content:  b.String(),
		Insights: append([]string{"您可以问我更具体的问题，例如："}, ExampleQuestions...),
	}
	if len(t.categorical) > 0 && len(t.numeric) > 0 {
		x, y := t.categorical[0], t.numeric[0]
		ans.Charts = []model.ChartSpec{
			model.NewChartSpec(model.ChartBar, fmt.Sprintf("%s的%s分布", x, y), x, y, model.AggSum),
		}
	}
	return ans
}
