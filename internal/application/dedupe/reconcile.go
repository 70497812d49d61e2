package dedupe

import (
	"maps"
	"sort"

	"github.com/erp/importer/internal/domain/contact"
)

// mergedFields are filled on the survivor from its duplicates
var mergedFields = []struct {
	Name string
	Ptr  func(c *contact.Contact) *string
}{
	{"email", func(c *contact.Contact) *string { return &c.Email }},
	{"phone", func(c *contact.Contact) *string { return &c.Phone }},
	{"phone2", func(c *contact.Contact) *string { return &c.Phone2 }},
	{"mobile", func(c *contact.Contact) *string { return &c.Mobile }},
	{"fax", func(c *contact.Contact) *string { return &c.Fax }},
	{"identification_type", func(c *contact.Contact) *string { return &c.IdentificationType }},
	{"identification_number", func(c *contact.Contact) *string { return &c.IdentificationNumber }},
	{"status", func(c *contact.Contact) *string { return &c.Status }},
	{"observations", func(c *contact.Contact) *string { return &c.Observations }},
}

// Reconcile copies data from the duplicates into the survivor and returns
// the names of the fields it filled. An empty survivor field takes the
// first non-empty value of the duplicates in ascending ID order. Metadata
// is layered from the highest duplicate ID down, then the survivor's own
// entries, so the survivor wins and lower IDs beat higher ones.
func Reconcile(g *Group) []string {
	dups := make([]*contact.Contact, len(g.Duplicates))
	copy(dups, g.Duplicates)
	sort.Slice(dups, func(i, j int) bool { return dups[i].ID < dups[j].ID })

	survivor := g.Survivor
	var filled []string
	for _, f := range mergedFields {
		dst := f.Ptr(survivor)
		if *dst != "" {
			continue
		}
		for _, d := range dups {
			if v := *f.Ptr(d); v != "" {
				*dst = v
				filled = append(filled, f.Name)
				break
			}
		}
	}

	metadata := make(map[string]string)
	for i := len(dups) - 1; i >= 0; i-- {
		maps.Copy(metadata, dups[i].Metadata)
	}
	maps.Copy(metadata, survivor.Metadata)
	if !maps.Equal(metadata, survivor.Metadata) {
		filled = append(filled, "metadata")
	}
	survivor.Metadata = metadata
	return filled
}
