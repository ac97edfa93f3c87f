package analysis

import (
	"edgeinsight-backend/internal/model"
)

// UnknownGroup is the group key used for rows without a groupBy value.
const UnknownGroup = "Unknown"

type AggregatedPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// AggregateData groups rows by the stringified groupBy value and reduces the
// valueField of each group. Non-numeric values count as 0. Groups come back
// in first-seen order; an empty aggregation means sum.
func AggregateData(rows []model.Row, groupBy, valueField string, agg model.Aggregation) []AggregatedPoint {
	order := []string{}
	groups := make(map[string][]float64)
	for _, row := range rows {
		key := UnknownGroup
		if v := row.Get(groupBy); !v.IsNull() {
			key = v.String()
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row.Get(valueField).FloatOrZero())
	}

	points := make([]AggregatedPoint, 0, len(order))
	for _, name := range order {
		points = append(points, AggregatedPoint{Name: name, Value: round2(reduce(groups[name], agg))})
	}
	return points
}

func reduce(values []float64, agg model.Aggregation) float64 {
	switch agg {
	case model.AggCount:
		return float64(len(values))
	case model.AggAvg:
		return sum(values) / float64(len(values))
	case model.AggMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case model.AggMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	default:
		return sum(values)
	}
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func maxPoint(points []AggregatedPoint) AggregatedPoint {
	best := points[0]
	for _, p := range points[1:] {
		if p.Value > best.Value {
			best = p
		}
	}
	return best
}

func minPoint(points []AggregatedPoint) AggregatedPoint {
	best := points[0]
	for _, p := range points[1:] {
		if p.Value < best.Value {
			best = p
		}
	}
	return best
}
