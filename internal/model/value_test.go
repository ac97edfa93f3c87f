package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFloat(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   float64
		wantOK bool
	}{
		{"number", NumberValue(12.5), 12.5, true},
		{"numeric string", StringValue(" 42 "), 42, true},
		{"negative string", StringValue("-3.25"), -3.25, true},
		{"text", StringValue("abc"), 0, false},
		{"empty string", StringValue(""), 0, false},
		{"null", NullValue(), 0, false},
		{"infinity string", StringValue("Inf"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Float()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberValueRejectsNaN(t *testing.T) {
	assert.True(t, NumberValue(math.NaN()).IsNull())
	assert.True(t, NumberValue(math.Inf(1)).IsNull())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "10", NumberValue(10).String())
	assert.Equal(t, "0.1", NumberValue(0.1).String())
	assert.Equal(t, "东区", StringValue("东区").String())
	assert.Equal(t, "", NullValue().String())
}

func TestRowJSON(t *testing.T) {
	var row Row
	err := json.Unmarshal([]byte(`{"a": 1.5, "b": "x", "c": null, "d": true, "e": {"k": 1}}`), &row)
	require.NoError(t, err)

	assert.Equal(t, KindNumber, row["a"].Kind())
	assert.Equal(t, "x", row["b"].String())
	assert.True(t, row["c"].IsNull())
	assert.Equal(t, "true", row["d"].String())
	assert.Equal(t, `{"k": 1}`, row["e"].String())
	assert.True(t, row.Get("missing").IsNull())

	out, err := json.Marshal(Row{"n": NumberValue(2), "s": StringValue("y"), "z": NullValue()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 2, "s": "y", "z": null}`, string(out))
}

func TestNewDatasetDropsUndeclaredKeys(t *testing.T) {
	rows := []Row{{"a": NumberValue(1), "extra": StringValue("x")}}
	ds, err := NewDataset("t", []string{"a"}, rows)
	require.NoError(t, err)
	_, ok := ds.Rows[0]["extra"]
	assert.False(t, ok)

	_, err = NewDataset("t", []string{"a", "a"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = NewDataset("t", nil, nil)
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestChartSpecValidateAndPatch(t *testing.T) {
	spec := NewChartSpec(ChartBar, "t", "x", "y", AggSum)
	assert.Contains(t, spec.ID, "bar-")
	assert.NoError(t, spec.Validate([]string{"x", "y"}))
	assert.ErrorIs(t, spec.Validate([]string{"x"}), ErrUnknownField)

	bad := spec
	bad.Type = "heatmap"
	assert.ErrorIs(t, bad.Validate(nil), ErrInvalidChartType)

	pie := ChartPie
	title := "新标题"
	patched := ChartPatch{Type: &pie, Title: &title}.Apply(spec)
	assert.Equal(t, ChartPie, patched.Type)
	assert.Equal(t, "新标题", patched.Title)
	assert.Equal(t, spec.ID, patched.ID)
	assert.Equal(t, "x", patched.XField)
}
