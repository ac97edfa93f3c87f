package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/parser"
)

func TestParseFile_CSV(t *testing.T) {
	p := parser.NewDatasetParser()
	input := "\ufeff月份,销售额\n1月,100\n2月,\n\n3月,abc\n"

	ds, err := p.ParseFile("sales.csv", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "sales.csv", ds.Name)
	assert.Equal(t, []string{"月份", "销售额"}, ds.Columns)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, model.KindNumber, ds.Rows[0]["销售额"].Kind())
	assert.True(t, ds.Rows[1].Get("销售额").IsNull())
	assert.Equal(t, "abc", ds.Rows[2]["销售额"].String())
	assert.False(t, ds.UploadTime.IsZero())
}

func TestParseFile_CSVHeaders(t *testing.T) {
	ds, err := parser.NewDatasetParser().ParseFile("d.CSV", strings.NewReader("a,a,\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_1", "column_3"}, ds.Columns)
	assert.Equal(t, "3", ds.Rows[0]["column_3"].String())
}

func TestParseFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		content  string
		wantErr  error
	}{
		{"unsupported extension", "notes.txt", "a,b\n1,2", parser.ErrUnsupportedFormat},
		{"no extension", "data", "a,b\n1,2", parser.ErrUnsupportedFormat},
		{"csv header only", "a.csv", "a,b\n", parser.ErrEmptyData},
		{"empty csv", "a.csv", "", parser.ErrEmptyData},
		{"json object without data", "a.json", `{"rows": []}`, parser.ErrMalformedJSON},
		{"invalid json", "a.json", `[{"a": 1}`, parser.ErrMalformedJSON},
		{"json scalars", "a.json", `[1, 2]`, parser.ErrMalformedJSON},
		{"empty json array", "a.json", `[]`, parser.ErrEmptyData},
	}
	p := parser.NewDatasetParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := p.ParseFile(tt.fileName, strings.NewReader(tt.content))
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseFile_JSON(t *testing.T) {
	p := parser.NewDatasetParser()

	ds, err := p.ParseFile("a.json", strings.NewReader(`[{"a": 1, "b": "x"}, {"c": true, "a": null, "b": ""}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 1.0, ds.Rows[0]["a"].FloatOrZero())
	assert.True(t, ds.Rows[1].Get("a").IsNull())
	assert.True(t, ds.Rows[1].Get("b").IsNull())
	assert.Equal(t, "true", ds.Rows[1]["c"].String())

	wrapped, err := p.ParseFile("b.json", strings.NewReader(`{"name": "ignored", "data": [{"x": 2}]}`))
	require.NoError(t, err)
	assert.Equal(t, "b.json", wrapped.Name)
	assert.Equal(t, []string{"x"}, wrapped.Columns)
}

func TestParseFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	cells := map[string]interface{}{
		"A1": "地区", "B1": "销售额",
		"A2": "东区", "B2": 100,
		"A3": "西区", "B3": 50.5,
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := parser.NewDatasetParser().ParseFile("report.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"地区", "销售额"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "东区", ds.Rows[0]["地区"].String())
	assert.Equal(t, 50.5, ds.Rows[1]["销售额"].FloatOrZero())
}

func TestParseFile_XLSXFormattedNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "地区"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "销售额"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "东区"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 1234567))
	require.NoError(t, f.SetCellValue(sheet, "A3", "西区"))
	require.NoError(t, f.SetCellValue(sheet, "B3", 2345.5))
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B3", thousands))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := parser.NewDatasetParser().ParseFile("report.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 1234567.0, ds.Rows[0]["销售额"].FloatOrZero())
	assert.Equal(t, 2345.5, ds.Rows[1]["销售额"].FloatOrZero())

	typ, ok := analysis.DetectColumnTypes(ds.Rows, ds.Columns).TypeOf("销售额")
	require.True(t, ok)
	assert.Equal(t, analysis.TypeNumber, typ)
	assert.Equal(t, 1236912.5, analysis.CalculateStats(ds.Rows, "销售额").Sum)
}

func TestParseFile_UnreadableWorkbook(t *testing.T) {
	p := parser.NewDatasetParser()
	for _, name := range []string{"broken.xlsx", "legacy.xls"} {
		_, err := p.ParseFile(name, strings.NewReader("\xd0\xcf\x11\xe0 not a zip"))
		assert.ErrorIs(t, err, parser.ErrUnreadableWorkbook, name)
	}
}

func TestParseText(t *testing.T) {
	p := parser.NewDatasetParser()

	fromJSON, err := p.ParseText(`  [{"城市": "上海", "人口": 2487}]  `)
	require.NoError(t, err)
	assert.Equal(t, parser.PastedDatasetName, fromJSON.Name)
	assert.Equal(t, []string{"城市", "人口"}, fromJSON.Columns)

	fromCSV, err := p.ParseText("城市,人口\n上海,2487\n北京,2189")
	require.NoError(t, err)
	assert.Equal(t, parser.PastedDatasetName, fromCSV.Name)
	assert.Len(t, fromCSV.Rows, 2)

	for _, bad := range []string{"", "   ", `{"x": 1}`, "only,header"} {
		_, err := p.ParseText(bad)
		assert.ErrorIs(t, err, parser.ErrUnparseablePaste, "input %q", bad)
	}
}

func TestDetectFormat(t *testing.T) {
	for name, want := range map[string]parser.Format{
		"a.csv":  parser.FormatCSV,
		"b.XLSX": parser.FormatXLSX,
		"c.xls":  parser.FormatXLSX,
		"d.json": parser.FormatJSON,
	} {
		got, err := parser.DetectFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
