package csvimport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads the first sheet of an .xlsx workbook
type ExcelSource struct {
	file       *excelize.File
	rows       *excelize.Rows
	headers    []string
	currentRow int
}

// OpenExcel opens a workbook and positions it on the first data row
func OpenExcel(path string, hasHeader bool) (*ExcelSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	sheet := f.GetSheetName(0)
	if sheet == "" {
		_ = f.Close()
		return nil, ErrEmptyFile
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	src := &ExcelSource{file: f, rows: rows}
	if hasHeader {
		if !rows.Next() {
			_ = src.Close()
			return nil, ErrMissingHeader
		}
		cols, err := rows.Columns()
		if err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		src.headers = make([]string, len(cols))
		for i, c := range cols {
			src.headers[i] = trimSpaces(NormalizeUTF8([]byte(c)))
		}
		src.currentRow = 1
	}
	return src, nil
}

// Headers returns the header names, nil when the sheet has none
func (s *ExcelSource) Headers() []string {
	return s.headers
}

// Next returns the next row of the sheet or io.EOF
func (s *ExcelSource) Next() (*Row, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", s.currentRow+1, err)
		}
		return nil, io.EOF
	}
	s.currentRow++

	cols, err := s.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", s.currentRow, err)
	}
	fields := make([]string, len(cols))
	for i, c := range cols {
		fields[i] = trimSpaces(NormalizeUTF8([]byte(c)))
	}
	return newRow(s.currentRow, s.headers, fields), nil
}

// Close releases the row iterator and the workbook
func (s *ExcelSource) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	return s.file.Close()
}
