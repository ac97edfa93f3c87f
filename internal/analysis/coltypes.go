// Package analysis is the local analysis engine: column type detection,
// statistics, grouped aggregation, keyword question routing and chart
// suggestion. Every function here is pure and safe for concurrent use.
package analysis

import (
	"regexp"

	"edgeinsight-backend/internal/model"
)

type ColumnType string

const (
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
	TypeString ColumnType = "string"
)

// SampleSize is the number of leading rows inspected by DetectColumnTypes.
const SampleSize = 100

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`),
	regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
	regexp.MustCompile(`^\d{1,2}月$`),
	regexp.MustCompile(`^Q[1-4]$`),
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the detected type of every column, in column order.
type Schema []Column

// DetectColumnTypes classifies each column from the first SampleSize rows.
// A column whose non-null sampled values are all numeric is a number column;
// otherwise one date-like string is enough to make it a date column.
func DetectColumnTypes(rows []model.Row, columns []string) Schema {
	if len(rows) == 0 {
		return Schema{}
	}
	sample := rows
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	schema := make(Schema, 0, len(columns))
	for _, col := range columns {
		schema = append(schema, Column{Name: col, Type: detectColumn(sample, col)})
	}
	return schema
}

func detectColumn(sample []model.Row, col string) ColumnType {
	seen := 0
	allNumeric := true
	looksLikeDate := false
	for _, row := range sample {
		v := row.Get(col)
		if v.IsNull() {
			continue
		}
		seen++
		if _, ok := v.Float(); !ok {
			allNumeric = false
		}
		if !looksLikeDate && v.Kind() == model.KindString && matchesDate(v.String()) {
			looksLikeDate = true
		}
	}
	switch {
	case seen > 0 && allNumeric:
		return TypeNumber
	case looksLikeDate:
		return TypeDate
	default:
		return TypeString
	}
}

func matchesDate(s string) bool {
	for _, p := range datePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func (s Schema) TypeOf(name string) (ColumnType, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

func (s Schema) Numeric() []string {
	return s.filter(func(t ColumnType) bool { return t == TypeNumber })
}

// Categorical returns string and date columns.
func (s Schema) Categorical() []string {
	return s.filter(func(t ColumnType) bool { return t == TypeString || t == TypeDate })
}

func (s Schema) Dates() []string {
	return s.filter(func(t ColumnType) bool { return t == TypeDate })
}

func (s Schema) filter(keep func(ColumnType) bool) []string {
	out := []string{}
	for _, c := range s {
		if keep(c.Type) {
			out = append(out, c.Name)
		}
	}
	return out
}
