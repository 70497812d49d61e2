// Package registry models the DGII taxpayer registry (RNC) mirror.
package registry

import (
	"context"
	"fmt"
	"time"
)

// Entry is one taxpayer of the published RNC registry. RNC is the natural key.
type Entry struct {
	RNC            string
	Name           string
	CommercialName string
	Category       string
	RegisteredAt   *time.Time
	Status         string
	PaymentRegime  string
	UpdatedAt      time.Time
}

// EntryRepository defines the interface for the registry mirror
type EntryRepository interface {
	// Truncate removes every entry
	Truncate(ctx context.Context) error

	// UpsertBatch inserts or updates entries by RNC
	UpsertBatch(ctx context.Context, entries []*Entry) error

	// FindByRNC finds an entry by RNC
	FindByRNC(ctx context.Context, rnc string) (*Entry, error)

	// Count returns the number of entries
	Count(ctx context.Context) (int64, error)
}

// MalformedLineError reports a registry line that cannot be parsed
type MalformedLineError struct {
	Line   int
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// DedupeLastWins keeps the last occurrence of each RNC while preserving
// the position of that last occurrence.
func DedupeLastWins(entries []*Entry) []*Entry {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		last[e.RNC] = i
	}
	out := make([]*Entry, 0, len(last))
	for i, e := range entries {
		if last[e.RNC] == i {
			out = append(out, e)
		}
	}
	return out
}
