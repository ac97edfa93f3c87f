package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
	ChartArea    ChartType = "area"
	ChartRadar   ChartType = "radar"
	ChartFunnel  ChartType = "funnel"
	ChartGauge   ChartType = "gauge"
)

var chartTypes = []ChartType{ChartBar, ChartLine, ChartPie, ChartScatter, ChartArea, ChartRadar, ChartFunnel, ChartGauge}

func (t ChartType) Valid() bool {
	return slices.Contains(chartTypes, t)
}

type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMax   Aggregation = "max"
	AggMin   Aggregation = "min"
)

func (a Aggregation) Valid() bool {
	switch a {
	case AggSum, AggAvg, AggCount, AggMax, AggMin:
		return true
	}
	return false
}

var (
	ErrInvalidChartType   = errors.New("invalid chart type")
	ErrInvalidAggregation = errors.New("invalid aggregation")
	ErrUnknownField       = errors.New("field is not a dataset column")
)

// ChartSpec describes a chart to render. It carries no data.
type ChartSpec struct {
	ID          string      `json:"id"`
	Type        ChartType   `json:"type"`
	Title       string      `json:"title"`
	XField      string      `json:"xField,omitempty"`
	YField      string      `json:"yField,omitempty"`
	SeriesField string      `json:"seriesField,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty"`
}

func NewChartSpec(chartType ChartType, title, xField, yField string, agg Aggregation) ChartSpec {
	return ChartSpec{
		ID:          NewChartID(chartType),
		Type:        chartType,
		Title:       title,
		XField:      xField,
		YField:      yField,
		Aggregation: agg,
	}
}

func NewChartID(chartType ChartType) string {
	return fmt.Sprintf("%s-%s", chartType, uuid.NewString())
}

// Validate checks the enums and, when columns is non-empty, that every
// referenced field exists in the dataset.
func (c ChartSpec) Validate(columns []string) error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidChartType, c.Type)
	}
	if c.Aggregation != "" && !c.Aggregation.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAggregation, c.Aggregation)
	}
	if len(columns) == 0 {
		return nil
	}
	for _, f := range []string{c.XField, c.YField, c.SeriesField} {
		if f != "" && !slices.Contains(columns, f) {
			return fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}
	return nil
}

// ChartPatch is a partial update; nil fields are left unchanged.
type ChartPatch struct {
	Type        *ChartType   `json:"type,omitempty"`
	Title       *string      `json:"title,omitempty"`
	XField      *string      `json:"xField,omitempty"`
	YField      *string      `json:"yField,omitempty"`
	SeriesField *string      `json:"seriesField,omitempty"`
	Aggregation *Aggregation `json:"aggregation,omitempty"`
}

func (p ChartPatch) Apply(c ChartSpec) ChartSpec {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.XField != nil {
		c.XField = *p.XField
	}
	if p.YField != nil {
		c.YField = *p.YField
	}
	if p.SeriesField != nil {
		c.SeriesField = *p.SeriesField
	}
	if p.Aggregation != nil {
		c.Aggregation = *p.Aggregation
	}
	return c
}
