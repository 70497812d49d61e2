package csvimport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Row represents a parsed row with its data and line number
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
}

func newRow(line int, headers, fields []string) *Row {
	row := &Row{
		LineNumber: line,
		Data:       make(map[string]string, len(headers)),
		RawFields:  fields,
	}
	for i, header := range headers {
		if i < len(fields) {
			row.Data[header] = fields[i]
		} else {
			row.Data[header] = ""
		}
	}
	return row
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// Field returns the value at a zero-based position, empty when out of range
func (r *Row) Field(i int) string {
	if i < 0 || i >= len(r.RawFields) {
		return ""
	}
	return r.RawFields[i]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.RawFields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// RowSource yields the rows of one input file
type RowSource interface {
	// Headers returns the header names, nil when the file has none
	Headers() []string
	// Next returns the next row or io.EOF
	Next() (*Row, error)
	// Close releases the file
	Close() error
}

// SourceOptions configures OpenSource
type SourceOptions struct {
	// Delimiter forces the delimiter for text files; zero detects it
	Delimiter rune
	// NoHeader treats the first line as data
	NoHeader bool
	// Offset skips this many data rows
	Offset int
	// Limit stops after this many data rows; zero means no limit
	Limit int
}

// Supported input extensions
var SupportedExtensions = []string{".csv", ".txt", ".xlsx"}

// IsSupported reports whether the file extension can be imported
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OpenSource opens a text or Excel file as a RowSource
func OpenSource(path string, opts SourceOptions) (RowSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file %s: %w", path, err)
	}

	var (
		src RowSource
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		src, err = OpenExcel(path, !opts.NoHeader)
	case ".csv", ".txt":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		src, err = NewTextSource(f, WithDelimiter(opts.Delimiter), WithHeader(!opts.NoHeader))
		if err != nil {
			_ = f.Close()
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if opts.Offset > 0 || opts.Limit > 0 {
		src = Paginate(src, opts.Offset, opts.Limit)
	}
	return src, nil
}

// ListFolder returns the supported files of a folder in lexical order
func ListFolder(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("batch folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch folder %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch folder %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMatchingFiles, dir)
	}
	sort.Strings(files)
	return files, nil
}

// pagedSource skips and caps the data rows of another source
type pagedSource struct {
	RowSource
	offset  int
	limit   int
	skipped int
	emitted int
}

// Paginate wraps src so that the first offset rows are skipped and at most
// limit rows are returned. A zero limit returns everything after the offset.
func Paginate(src RowSource, offset, limit int) RowSource {
	return &pagedSource{RowSource: src, offset: offset, limit: limit}
}

func (p *pagedSource) Next() (*Row, error) {
	for p.skipped < p.offset {
		if _, err := p.RowSource.Next(); err != nil {
			return nil, err
		}
		p.skipped++
	}
	if p.limit > 0 && p.emitted >= p.limit {
		return nil, io.EOF
	}
	row, err := p.RowSource.Next()
	if err != nil {
		return nil, err
	}
	p.emitted++
	return row, nil
}
