// Package parser turns uploaded files and pasted text into datasets.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/model"
)

// Upload errors carry the message shown to the user.
var (
	ErrUnsupportedFormat  = errors.New("不支持的文件格式，请上传 CSV、Excel 或 JSON 文件")
	ErrEmptyData          = errors.New("文件中没有数据")
	ErrMalformedJSON      = errors.New("JSON格式不正确，需要数组或包含data数组的对象")
	ErrUnparseablePaste   = errors.New("无法解析粘贴的数据")
	ErrUnreadableWorkbook = errors.New("无法读取Excel文件，请另存为 .xlsx 格式后重新上传")
)

// PastedDatasetName names every dataset built from pasted text.
const PastedDatasetName = "粘贴的数据"

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat maps a file name to its upload format by extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xls":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	}
	return "", ErrUnsupportedFormat
}

type DatasetParser interface {
	ParseFile(fileName string, r io.Reader) (*model.Dataset, error)
	ParseText(text string) (*model.Dataset, error)
}

// table is the format-neutral result of decoding a source.
type table struct {
	columns []string
	rows    []model.Row
}

type decodeFunc func(r io.Reader) (*table, error)

type datasetParser struct {
	decoders map[Format]decodeFunc
}

func NewDatasetParser() DatasetParser {
	return &datasetParser{
		decoders: map[Format]decodeFunc{
			FormatCSV:  decodeCSV,
			FormatXLSX: decodeXLSX,
			FormatJSON: decodeJSON,
		},
	}
}

func (p *datasetParser) ParseFile(fileName string, r io.Reader) (*model.Dataset, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		log.Warn().Str("file", fileName).Msg("Rejected upload with unsupported extension")
		return nil, err
	}

	tbl, err := p.decoders[format](r)
	if err != nil {
		log.Warn().Err(err).Str("file", fileName).Str("format", string(format)).Msg("Failed to decode upload")
		return nil, err
	}
	ds, err := buildDataset(fileName, tbl)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("file", fileName).
		Str("format", string(format)).
		Int("rows", ds.RowCount()).
		Int("columns", len(ds.Columns)).
		Msg("Parsed uploaded dataset")
	return ds, nil
}

// ParseText reads pasted text as JSON when it is valid JSON, else as CSV.
func (p *datasetParser) ParseText(text string) (*model.Dataset, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrUnparseablePaste
	}

	var (
		tbl *table
		err error
	)
	if looksLikeJSON(text) {
		tbl, err = decodeJSON(strings.NewReader(text))
	} else {
		tbl, err = decodeCSV(strings.NewReader(text))
	}
	if err != nil {
		log.Debug().Err(err).Msg("Pasted text could not be decoded")
		return nil, ErrUnparseablePaste
	}
	ds, err := buildDataset(PastedDatasetName, tbl)
	if err != nil {
		return nil, ErrUnparseablePaste
	}
	return ds, nil
}

func buildDataset(name string, tbl *table) (*model.Dataset, error) {
	if tbl == nil || len(tbl.rows) == 0 || len(tbl.columns) == 0 {
		return nil, ErrEmptyData
	}
	ds, err := model.NewDataset(name, tbl.columns, tbl.rows)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return ds, nil
}

// typedCell applies dynamic typing to a text cell: blank is null, numeric
// text is a number, anything else stays a string.
func typedCell(raw string) model.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.NullValue()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if v := model.NumberValue(f); !v.IsNull() {
			return v
		}
	}
	return model.StringValue(raw)
}

// headerNames cleans a header row: strips a UTF-8 BOM, names blank headers
// and suffixes duplicates so every column name is unique.
func headerNames(header []string) []string {
	used := make(map[string]bool, len(header))
	out := make([]string, 0, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		used[name] = true
		out = append(out, name)
	}
	return out
}

// rowsFromRecords zips text records with the header and skips blank records.
func rowsFromRecords(columns []string, records [][]string) []model.Row {
	rows := make([]model.Row, 0, len(records))
	for _, rec := range records {
		row := make(model.Row, len(columns))
		for i, col := range columns {
			if i >= len(rec) {
				break
			}
			if v := typedCell(rec[i]); !v.IsNull() {
				row[col] = v
			}
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
