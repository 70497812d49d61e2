// Package dgii reads the taxpayer registry published by the Dominican tax
// authority (DGII) as a ZIP holding one pipe-delimited ISO-8859-1 text file.
package dgii

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/erp/importer/internal/domain/registry"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Column positions of DGII_RNC.TXT
const (
	colRNC            = 0
	colName           = 1
	colCommercialName = 2
	colCategory       = 3
	colRegisteredAt   = 8
	colStatus         = 9
	colPaymentRegime  = 10

	minColumns = colStatus + 1
	maxLineLen = 1 << 20
)

// Reader streams registry entries from a local text file
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
	path    string
	size    int64
	line    int
	now     time.Time
	// cleanup removes files the feed extracted or downloaded
	cleanup func() error
}

// OpenText opens a registry text file
func OpenText(path string) (*Reader, error) {
	return openText(path, time.Now(), nil)
}

func openText(path string, now time.Time, cleanup func() error) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat registry file: %w", err)
	}

	scanner := bufio.NewScanner(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)

	return &Reader{
		file:    f,
		scanner: scanner,
		path:    path,
		size:    info.Size(),
		now:     now,
		cleanup: cleanup,
	}, nil
}

// Next returns the next entry. Blank lines are skipped; a line that
// cannot be parsed yields a *registry.MalformedLineError.
func (r *Reader) Next() (*registry.Entry, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		return ParseLine(r.line, text, r.now)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read registry line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// ParseLine parses one decoded registry line
func ParseLine(line int, text string, now time.Time) (*registry.Entry, error) {
	fields := strings.Split(text, "|")
	if len(fields) < minColumns {
		return nil, &registry.MalformedLineError{
			Line:   line,
			Reason: fmt.Sprintf("expected at least %d columns, got %d", minColumns, len(fields)),
		}
	}

	rnc, ok := csvimport.CleanIdentification(fields[colRNC])
	if !ok {
		return nil, &registry.MalformedLineError{Line: line, Reason: "missing rnc"}
	}
	name, ok := csvimport.CleanString(fields[colName])
	if !ok {
		return nil, &registry.MalformedLineError{Line: line, Reason: "missing name for rnc " + rnc}
	}

	e := &registry.Entry{
		RNC:       rnc,
		Name:      name,
		UpdatedAt: now,
	}
	e.CommercialName, _ = csvimport.CleanString(fields[colCommercialName])
	e.Category, _ = csvimport.CleanString(fields[colCategory])
	e.Status, _ = csvimport.CleanString(fields[colStatus])
	if len(fields) > colPaymentRegime {
		e.PaymentRegime, _ = csvimport.CleanString(fields[colPaymentRegime])
	}
	if t, ok := csvimport.ParseDate(fields[colRegisteredAt]); ok {
		e.RegisteredAt = &t
	}
	return e, nil
}

// Line is the line number of the last entry returned by Next
func (r *Reader) Line() int { return r.line }

// Path is the text file being read
func (r *Reader) Path() string { return r.path }

// Size is the size of the text file in bytes
func (r *Reader) Size() int64 { return r.size }

// Close closes the file and removes anything the feed extracted
func (r *Reader) Close() error {
	err := r.file.Close()
	if r.cleanup != nil {
		if cerr := r.cleanup(); cerr != nil && err == nil {
			err = cerr
		}
		r.cleanup = nil
	}
	return err
}
