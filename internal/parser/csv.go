package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

func decodeCSV(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("csv line %d: %w", parseErr.Line, parseErr.Err)
		}
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyData
	}

	columns := headerNames(records[0])
	return &table{
		columns: columns,
		rows:    rowsFromRecords(columns, records[1:]),
	}, nil
}
