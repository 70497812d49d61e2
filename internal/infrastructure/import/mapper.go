package csvimport

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column describes one logical field of an import layout
type Column struct {
	// Field is the logical name used by the importer
	Field string
	// Aliases are header spellings accepted for the field
	Aliases []string
	// Position is the zero-based index used for headerless files
	Position int
}

// Layout is the ordered column list of one entity type
type Layout []Column

// RowMapper locates logical fields inside a raw row
type RowMapper interface {
	// Value returns the cell for a field and whether the column exists
	Value(row *Row, field string) (string, bool)
	// Missing returns the fields that cannot be located
	Missing(fields ...string) []string
}

// NewRowMapper returns a HeaderMapper when headers are present and a
// PositionalMapper otherwise.
func NewRowMapper(layout Layout, headers []string) RowMapper {
	if len(headers) == 0 {
		return NewPositionalMapper(layout)
	}
	return NewHeaderMapper(layout, headers)
}

// HeaderMapper resolves fields by matching header names against aliases.
// Matching ignores case, accents, spaces and punctuation.
type HeaderMapper struct {
	index map[string]int
}

// NewHeaderMapper binds the layout to the given header row
func NewHeaderMapper(layout Layout, headers []string) *HeaderMapper {
	byKey := make(map[string]int, len(headers))
	for i, h := range headers {
		key := FoldHeader(h)
		if _, seen := byKey[key]; !seen {
			byKey[key] = i
		}
	}

	m := &HeaderMapper{index: make(map[string]int, len(layout))}
	for _, col := range layout {
		names := append([]string{col.Field}, col.Aliases...)
		for _, name := range names {
			if i, ok := byKey[FoldHeader(name)]; ok {
				m.index[col.Field] = i
				break
			}
		}
	}
	return m
}

// Value implements RowMapper
func (m *HeaderMapper) Value(row *Row, field string) (string, bool) {
	i, ok := m.index[field]
	if !ok {
		return "", false
	}
	return row.Field(i), true
}

// Missing implements RowMapper
func (m *HeaderMapper) Missing(fields ...string) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := m.index[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// PositionalMapper resolves fields by their fixed column position
type PositionalMapper struct {
	positions map[string]int
}

// NewPositionalMapper binds the layout positions
func NewPositionalMapper(layout Layout) *PositionalMapper {
	m := &PositionalMapper{positions: make(map[string]int, len(layout))}
	for _, col := range layout {
		m.positions[col.Field] = col.Position
	}
	return m
}

// Value implements RowMapper
func (m *PositionalMapper) Value(row *Row, field string) (string, bool) {
	i, ok := m.positions[field]
	if !ok {
		return "", false
	}
	return row.Field(i), true
}

// Missing implements RowMapper
func (m *PositionalMapper) Missing(fields ...string) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := m.positions[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// FoldHeader lowercases a header, removes accents and drops everything
// that is not a letter or digit: "Teléfono 2" becomes "telefono2".
func FoldHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
