package parser

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// decodeXLSX reads the first worksheet; its first row is the header. Cells
// are read raw so number formats like #,##0 do not turn numbers into text.
// Legacy BIFF .xls files are not zip archives and fail to open.
func decodeXLSX(r io.Reader) (*table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to open workbook")
		return nil, ErrUnreadableWorkbook
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyData
	}
	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
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
