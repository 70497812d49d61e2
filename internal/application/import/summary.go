package importapp

import (
	"fmt"
	"io"
	"time"

	"github.com/erp/importer/internal/domain/bulk"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/google/uuid"
)

// Summary is the result of one import run
type Summary struct {
	RunID    uuid.UUID             `json:"run_id"`
	Entity   bulk.ImportEntityType `json:"entity"`
	File     string                `json:"file"`
	Total    int                   `json:"total"`
	Imported int                   `json:"imported"`
	Skipped  int                   `json:"skipped"`
	Reasons  map[string]int        `json:"reasons,omitempty"`
	Duration time.Duration         `json:"duration"`

	errors *csvimport.ErrorLog
}

// NewSummary creates an empty summary keeping at most maxErrors messages
func NewSummary(entity bulk.ImportEntityType, file string, maxErrors int) *Summary {
	return &Summary{
		Entity:  entity,
		File:    file,
		Reasons: make(map[string]int),
		errors:  csvimport.NewErrorLog(maxErrors),
	}
}

// Record counts one result. Deferred and fatal results are not counted.
func (s *Summary) Record(line int, res RowResult) {
	switch res.Kind {
	case KindOK:
		s.Total++
		s.Imported++
	case KindSkip:
		s.Total++
		s.Skipped++
		s.Reasons[res.Reason]++
		s.errors.Add(csvimport.RowError{
			Line:    line,
			Field:   res.Column,
			Reason:  res.Reason,
			Message: res.Message,
			Value:   res.Value,
		})
	}
}

// Errors returns the kept row errors
func (s *Summary) Errors() []csvimport.RowError {
	return s.errors.Kept()
}

// TotalErrors returns how many rows were skipped with an error message
func (s *Summary) TotalErrors() int {
	return s.errors.Total()
}

// IsTruncated reports whether some error messages were dropped
func (s *Summary) IsTruncated() bool {
	return s.errors.Dropped() > 0
}

// ErrorDetails converts the kept errors for the history record
func (s *Summary) ErrorDetails() []bulk.ImportErrorDetail {
	errs := s.errors.Kept()
	details := make([]bulk.ImportErrorDetail, len(errs))
	for i, e := range errs {
		details[i] = bulk.ImportErrorDetail{
			Row:     e.Line,
			Column:  e.Field,
			Code:    e.Reason,
			Message: e.Message,
			Value:   e.Value,
		}
	}
	return details
}

// Merge adds the counts of another summary, used for batch folders
func (s *Summary) Merge(other *Summary) {
	s.Total += other.Total
	s.Imported += other.Imported
	s.Skipped += other.Skipped
	s.Duration += other.Duration
	for reason, n := range other.Reasons {
		s.Reasons[reason] += n
	}
	s.errors.Absorb(other.errors, other.File)
}

// WriteTo prints the human readable report
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...any) error {
		c, err := fmt.Fprintf(w, format, args...)
		n += int64(c)
		return err
	}

	if err := write("%s: %s\n", s.Entity, s.File); err != nil {
		return n, err
	}
	if err := write("  imported: %d\n  skipped: %d\n", s.Imported, s.Skipped); err != nil {
		return n, err
	}
	for _, reason := range csvimport.SortedKeys(s.Reasons) {
		if err := write("    %s: %d\n", reason, s.Reasons[reason]); err != nil {
			return n, err
		}
	}
	m, err := s.errors.WriteTo(w)
	return n + m, err
}
