package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

const (
	textBufferSize = 64 * 1024
	sniffSize      = 4096
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextSource reads delimited text exports (csv, semicolon or pipe separated).
// Each cell is decoded on its own so a file mixing UTF-8 and legacy 8-bit
// text still comes out as UTF-8.
type TextSource struct {
	delimiter rune
	header    bool
	headers   []string
	line      int
	reader    *csv.Reader
	closer    io.Closer
}

// TextOption configures NewTextSource
type TextOption func(*TextSource)

// WithDelimiter forces the field delimiter. Zero detects it from the first line.
func WithDelimiter(d rune) TextOption {
	return func(s *TextSource) { s.delimiter = d }
}

// WithHeader tells whether the first line holds column names
func WithHeader(header bool) TextOption {
	return func(s *TextSource) { s.header = header }
}

// NewTextSource reads rows from r, closing it on Close when it is an io.Closer
func NewTextSource(r io.Reader, opts ...TextOption) (*TextSource, error) {
	s := &TextSource{header: true}
	for _, opt := range opts {
		opt(s)
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}

	br := bufio.NewReaderSize(r, textBufferSize)
	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		head = head[len(utf8BOM):]
	}
	if s.delimiter == 0 {
		s.delimiter = DetectDelimiter(head)
	}

	s.reader = csv.NewReader(br)
	s.reader.Comma = s.delimiter
	s.reader.LazyQuotes = true
	s.reader.TrimLeadingSpace = true
	s.reader.FieldsPerRecord = -1

	if s.header {
		if err := s.readHeader(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DetectDelimiter picks the most frequent of ',', ';' and '|' on the first
// line, ignoring quoted text. Comma wins ties and empty input.
func DetectDelimiter(sample []byte) rune {
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	counts := map[rune]int{}
	inQuotes := false
	for _, b := range sample {
		switch {
		case b == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case b == ',' || b == ';' || b == '|':
			counts[rune(b)]++
		}
	}
	best := ','
	for _, d := range []rune{';', '|'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func (s *TextSource) readHeader() error {
	record, err := s.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	s.line = 1
	s.headers = decodeCells(record)
	if len(s.headers) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the column names, nil for headerless files
func (s *TextSource) Headers() []string {
	return s.headers
}

// Delimiter returns the delimiter in use
func (s *TextSource) Delimiter() rune {
	return s.delimiter
}

// Next reads the next row, returning io.EOF at the end of the file. Rows
// carry the physical line they start on, so quoted multi-line cells do not
// shift later line numbers. A malformed line comes back as a wrapped
// *csv.ParseError and reading can continue after it.
func (s *TextSource) Next() (*Row, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		s.line++
		var perr *csv.ParseError
		if errors.As(err, &perr) && perr.StartLine > 0 {
			s.line = perr.StartLine
		}
		return nil, fmt.Errorf("line %d: %w", s.line, err)
	}
	if len(record) > 0 {
		s.line, _ = s.reader.FieldPos(0)
	} else {
		s.line++
	}
	return newRow(s.line, s.headers, decodeCells(record)), nil
}

// Close releases the underlying reader
func (s *TextSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func decodeCells(record []string) []string {
	out := make([]string, len(record))
	for i, cell := range record {
		out[i] = trimSpaces(NormalizeUTF8([]byte(cell)))
	}
	return out
}
