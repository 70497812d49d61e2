package invoice

import (
	"sort"
	"strings"
)

// SubtypeMap maps a document numbering prefix (for example "B01" for
// fiscal credit invoices) to the subtype ID used by the tenant.
type SubtypeMap map[string]int64

// Resolve returns the subtype for a document number. The longest
// matching prefix wins; comparison is case-insensitive.
func (m SubtypeMap) Resolve(documentNumber string) (int64, bool) {
	doc := strings.ToUpper(strings.TrimSpace(documentNumber))
	prefixes := make([]string, 0, len(m))
	for p := range m {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(doc, strings.ToUpper(p)) {
			return m[p], true
		}
	}
	return 0, false
}
