package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoColumns       = errors.New("dataset has no columns")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Row maps a column name to its cell. A missing key reads as null.
type Row map[string]Value

func (r Row) Get(column string) Value {
	if r == nil {
		return NullValue()
	}
	return r[column]
}

type Dataset struct {
	Name       string    `json:"name"`
	Columns    []string  `json:"columns"`
	Rows       []Row     `json:"data"`
	UploadTime time.Time `json:"uploadTime"`
}

// NewDataset builds a dataset and drops any row key that is not a declared column.
func NewDataset(name string, columns []string, rows []Row) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	declared := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := declared[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		declared[c] = struct{}{}
	}
	for _, row := range rows {
		for k := range row {
			if _, ok := declared[k]; !ok {
				delete(row, k)
			}
		}
	}
	return &Dataset{
		Name:       name,
		Columns:    columns,
		Rows:       rows,
		UploadTime: time.Now().UTC(),
	}, nil
}

func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Sample returns at most n leading rows.
func (d *Dataset) Sample(n int) []Row {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Info is the summary sent to the remote model.
func (d *Dataset) Info(sampleSize int) DatasetInfo {
	return DatasetInfo{
		Name:       d.Name,
		Columns:    d.Columns,
		SampleData: d.Sample(sampleSize),
		RowCount:   len(d.Rows),
	}
}

// DatasetInfo is the dataset description carried by analysis requests.
type DatasetInfo struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	SampleData []Row    `json:"sampleData"`
	RowCount   int      `json:"rowCount"`
}

// AsDataset turns a request summary into a dataset over its sample rows, so
// the local engine can suggest charts for it.
func (i DatasetInfo) AsDataset() *Dataset {
	return &Dataset{
		Name:    i.Name,
		Columns: i.Columns,
		Rows:    i.SampleData,
	}
}
