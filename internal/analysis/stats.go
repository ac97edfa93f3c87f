package analysis

import (
	"math"
	"sort"

	"edgeinsight-backend/internal/model"
)

type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Sum    float64 `json:"sum"`
	Count  int     `json:"count"`
	Median float64 `json:"median"`
}

// CalculateStats summarises the numeric values of column. Null and
// non-numeric cells are skipped. avg, sum and median are rounded to two
// decimals once, after the full computation.
func CalculateStats(rows []model.Row, column string) Stats {
	values := numericValues(rows, column)
	if len(values) == 0 {
		return Stats{}
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	n := len(values)
	var median float64
	if n%2 == 0 {
		median = (values[n/2-1] + values[n/2]) / 2
	} else {
		median = values[n/2]
	}

	return Stats{
		Min:    values[0],
		Max:    values[n-1],
		Avg:    round2(sum / float64(n)),
		Sum:    round2(sum),
		Count:  n,
		Median: round2(median),
	}
}

func numericValues(rows []model.Row, column string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if f, ok := row.Get(column).Float(); ok {
			values = append(values, f)
		}
	}
	return values
}

// FindCorrelation returns the Pearson coefficient of two columns over the rows
// where both are numeric, rounded to two decimals. It is 0 when fewer than two
// pairs exist or either column has no variance.
func FindCorrelation(rows []model.Row, colA, colB string) float64 {
	var n, sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, row := range rows {
		x, okX := row.Get(colA).Float()
		y, okY := row.Get(colB).Float()
		if !okX || !okY {
			continue
		}
		n++
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
		sumY2 += y * y
	}
	if n < 2 {
		return 0
	}
	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 || math.IsNaN(denominator) {
		return 0
	}
	return round2(numerator / denominator)
}

// UniqueValues lists the distinct non-null values of column in first-seen
// order. A number and a string with the same text are distinct.
func UniqueValues(rows []model.Row, column string) []model.Value {
	type key struct {
		kind model.ValueKind
		text string
	}
	seen := make(map[key]struct{})
	out := []model.Value{}
	for _, row := range rows {
		v := row.Get(column)
		if v.IsNull() {
			continue
		}
		k := key{v.Kind(), v.String()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// round2 rounds half up to two decimals.
func round2(f float64) float64 {
	return math.Floor(f*100+0.5) / 100
}
