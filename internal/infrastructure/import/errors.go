package csvimport

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// DefaultMaxErrors is how many row errors a run keeps for display
const DefaultMaxErrors = 20

var (
	// ErrEmptyFile is returned when the input file holds no rows at all
	ErrEmptyFile = errors.New("input file is empty")

	// ErrMissingHeader is returned when a header row is expected but absent
	ErrMissingHeader = errors.New("input file missing header row")

	// ErrUnsupportedFormat is returned for extensions other than csv, txt and xlsx
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrNoMatchingFiles is returned when a batch folder holds no importable file
	ErrNoMatchingFiles = errors.New("no importable files")
)

// RowError describes why one source line was skipped
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	msg := e.Message
	if e.Value != "" {
		msg = fmt.Sprintf("%s (%q)", msg, e.Value)
	}
	if e.Field != "" {
		return fmt.Sprintf("line %d, %s: %s", e.Line, e.Field, msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, msg)
}

// ErrorLog keeps the first row errors of a run up to a limit and counts
// the ones it drops.
type ErrorLog struct {
	kept  []RowError
	limit int
	total int
}

// NewErrorLog returns a log keeping at most limit errors; zero or less
// means DefaultMaxErrors.
func NewErrorLog(limit int) *ErrorLog {
	if limit <= 0 {
		limit = DefaultMaxErrors
	}
	return &ErrorLog{limit: limit}
}

// Add records e, keeping it while there is room
func (l *ErrorLog) Add(e RowError) {
	l.total++
	if len(l.kept) < l.limit {
		l.kept = append(l.kept, e)
	}
}

// Absorb adds the errors of another file's log, prefixing each kept
// message with the file name.
func (l *ErrorLog) Absorb(other *ErrorLog, file string) {
	for _, e := range other.kept {
		if len(l.kept) >= l.limit {
			break
		}
		e.Message = file + ": " + e.Message
		l.kept = append(l.kept, e)
	}
	l.total += other.total
}

// Kept returns the errors held for display
func (l *ErrorLog) Kept() []RowError {
	return l.kept
}

// Total returns how many errors were added, kept or not
func (l *ErrorLog) Total() int {
	return l.total
}

// Dropped returns how many errors did not fit
func (l *ErrorLog) Dropped() int {
	return l.total - len(l.kept)
}

// WriteTo prints the kept errors followed by the "... and N more" note
func (l *ErrorLog) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...any) error {
		c, err := fmt.Fprintf(w, format, args...)
		n += int64(c)
		return err
	}

	if l.total == 0 {
		return n, nil
	}
	if err := write("  errors: %d\n", l.total); err != nil {
		return n, err
	}
	for _, e := range l.kept {
		if err := write("    - %s\n", e.Error()); err != nil {
			return n, err
		}
	}
	if dropped := l.Dropped(); dropped > 0 {
		if err := write("    ... and %d more\n", dropped); err != nil {
			return n, err
		}
	}
	return n, nil
}

// SortedKeys returns the keys of a reason count in alphabetical order
func SortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
