package dedupe

import (
	"sort"

	"github.com/erp/importer/internal/domain/contact"
)

// Identity key kinds
const (
	KeyName  = "name"
	KeyEmail = "email"
	KeyPhone = "phone"
)

// MinPhoneDigits is the shortest phone that counts as an identity key
const MinPhoneDigits = 5

// Key is one normalized identity value of a contact
type Key struct {
	Kind  string
	Value string
}

// String renders the key as kind:value
func (k Key) String() string {
	return k.Kind + ":" + k.Value
}

// Keys returns the identity keys of a contact without duplicates
func Keys(c *contact.Contact) []Key {
	var keys []Key
	seen := make(map[Key]bool)
	add := func(kind, value string) {
		if value == "" {
			return
		}
		k := Key{Kind: kind, Value: value}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	add(KeyName, contact.NormalizeName(c.Name))
	add(KeyEmail, contact.NormalizeEmail(c.Email))
	for _, phone := range c.PhoneFields() {
		if digits := contact.PhoneDigits(phone); len(digits) >= MinPhoneDigits {
			add(KeyPhone, digits)
		}
	}
	return keys
}

// Group is a survivor and the contacts that will be merged into it
type Group struct {
	Survivor   *contact.Contact
	Duplicates []*contact.Contact
	// SharedKeys are the keys held by more than one member
	SharedKeys []string
}

// IDs returns the duplicate IDs in ascending order
func (g *Group) IDs() []int64 {
	ids := make([]int64, len(g.Duplicates))
	for i, d := range g.Duplicates {
		ids[i] = d.ID
	}
	return ids
}

// FindGroups unions contacts that share identity keys. The first contact,
// by ascending ID, to hold a key owns it and every later holder is joined
// with the owner when the pair shares at least minKeys distinct key kinds.
// Only groups with more than one member are returned, ordered by survivor ID.
func FindGroups(contacts []*contact.Contact, minKeys int) []*Group {
	if minKeys < 1 {
		minKeys = 1
	}

	sorted := make([]*contact.Contact, len(contacts))
	copy(sorted, contacts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[int64]*contact.Contact, len(sorted))
	keysOf := make(map[int64][]Key, len(sorted))
	owner := make(map[Key]int64)
	uf := NewUnionFind()

	for _, c := range sorted {
		byID[c.ID] = c
		uf.Add(c.ID)
		keysOf[c.ID] = Keys(c)
		for _, k := range keysOf[c.ID] {
			first, ok := owner[k]
			if !ok {
				owner[k] = c.ID
				continue
			}
			if sharedKinds(keysOf[first], keysOf[c.ID]) >= minKeys {
				uf.Union(first, c.ID)
			}
		}
	}

	var groups []*Group
	for _, members := range uf.Sets() {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

		g := &Group{Survivor: byID[members[0]]}
		count := make(map[Key]int)
		for i, id := range members {
			if i > 0 {
				g.Duplicates = append(g.Duplicates, byID[id])
			}
			for _, k := range keysOf[id] {
				count[k]++
			}
		}
		shared := make(map[string]bool)
		for k, n := range count {
			if n > 1 {
				shared[k.String()] = true
			}
		}
		g.SharedKeys = sortedKeys(shared)
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Survivor.ID < groups[j].Survivor.ID })
	return groups
}

// sharedKinds counts the key kinds for which a and b hold a common value
func sharedKinds(a, b []Key) int {
	values := make(map[Key]bool, len(a))
	for _, k := range a {
		values[k] = true
	}
	kinds := make(map[string]bool)
	for _, k := range b {
		if values[k] {
			kinds[k.Kind] = true
		}
	}
	return len(kinds)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
