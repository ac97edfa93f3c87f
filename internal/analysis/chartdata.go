package analysis

import (
	"errors"
	"sort"

	"edgeinsight-backend/internal/model"
)

var ErrChartFieldsMissing = errors.New("chart needs both xField and yField")

var monthOrder = map[string]int{
	"1月": 1, "2月": 2, "3月": 3, "4月": 4, "5月": 5, "6月": 6,
	"7月": 7, "8月": 8, "9月": 9, "10月": 10, "11月": 11, "12月": 12,
}

// ChartData is the plotted series of a chart spec.
type ChartData struct {
	Spec   model.ChartSpec   `json:"spec"`
	Points []AggregatedPoint `json:"points,omitempty"`
	Pairs  [][2]float64      `json:"pairs,omitempty"`
	// Value and Max are set for gauge charts; Max alone for radar charts.
	Value float64 `json:"value,omitempty"`
	Max   float64 `json:"max,omitempty"`
}

// BuildChartData evaluates spec against the dataset. Month labels are put in
// calendar order and funnels are ranked by value.
func BuildChartData(ds *model.Dataset, spec model.ChartSpec) (ChartData, error) {
	if spec.XField == "" || spec.YField == "" {
		return ChartData{}, ErrChartFieldsMissing
	}
	out := ChartData{Spec: spec}

	if spec.Type == model.ChartScatter {
		out.Pairs = make([][2]float64, 0, len(ds.Rows))
		for _, row := range ds.Rows {
			out.Pairs = append(out.Pairs, [2]float64{
				row.Get(spec.XField).FloatOrZero(),
				row.Get(spec.YField).FloatOrZero(),
			})
		}
		return out, nil
	}

	points := SortByMonth(AggregateData(ds.Rows, spec.XField, spec.YField, spec.Aggregation))
	out.Points = points
	if len(points) == 0 {
		return out, nil
	}

	switch spec.Type {
	case model.ChartFunnel:
		sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	case model.ChartRadar:
		out.Max = round2(maxPoint(points).Value * 1.2)
	case model.ChartGauge:
		var total float64
		for _, p := range points {
			total += p.Value
		}
		out.Value = round2(total / float64(len(points)))
		out.Max = round2(maxPoint(points).Value * 1.2)
	}
	return out, nil
}

// SortByMonth puts the month-labelled points (1月..12月) in calendar order.
// Other points keep their positions.
func SortByMonth(points []AggregatedPoint) []AggregatedPoint {
	slots := []int{}
	months := []AggregatedPoint{}
	for i, p := range points {
		if _, ok := monthOrder[p.Name]; ok {
			slots = append(slots, i)
			months = append(months, p)
		}
	}
	sort.SliceStable(months, func(i, j int) bool { return monthOrder[months[i].Name] < monthOrder[months[j].Name] })

	out := make([]AggregatedPoint, len(points))
	copy(out, points)
	for i, slot := range slots {
		out[slot] = months[i]
	}
	return out
}
