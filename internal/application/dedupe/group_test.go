package dedupe

import (
	"testing"

	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContact(id int64, name string, opts ...func(*contact.Contact)) *contact.Contact {
	c := &contact.Contact{
		TenantEntity: shared.TenantEntity{BaseEntity: shared.BaseEntity{ID: id}},
		Name:         name,
		Type:         contact.ContactTypeCustomer,
		Metadata:     map[string]string{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func withEmail(e string) func(*contact.Contact) { return func(c *contact.Contact) { c.Email = e } }
func withPhone(p string) func(*contact.Contact) { return func(c *contact.Contact) { c.Phone = p } }

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind()
	for id := int64(1); id <= 5; id++ {
		uf.Add(id)
	}

	assert.True(t, uf.Union(1, 2))
	assert.True(t, uf.Union(3, 4))
	assert.True(t, uf.Union(2, 4))
	assert.False(t, uf.Union(1, 3), "already connected")

	assert.True(t, uf.Connected(1, 4))
	assert.False(t, uf.Connected(1, 5))

	sets := uf.Sets()
	assert.Len(t, sets, 2)
	assert.Len(t, sets[uf.Find(3)], 4)
	assert.Equal(t, []int64{5}, sets[uf.Find(5)])
}

func TestUnionFind_UnionBySize(t *testing.T) {
	uf := NewUnionFind()
	uf.Union(1, 2)
	uf.Union(1, 3)
	root := uf.Find(1)

	uf.Union(9, 1)
	assert.Equal(t, root, uf.Find(9), "the smaller set joins the larger one")
}

func TestKeys(t *testing.T) {
	c := newContact(1, "Juan  Perez", withEmail(" A@X.com "), func(c *contact.Contact) {
		c.Phone = "(809) 123-4567"
		c.Mobile = "809-123-4567"
		c.Fax = "1234"
	})

	assert.Equal(t, []Key{
		{KeyName, "juanperez"},
		{KeyEmail, "a@x.com"},
		{KeyPhone, "8091234567"},
	}, Keys(c))
}

func TestFindGroups_TransitiveMerge(t *testing.T) {
	contacts := []*contact.Contact{
		newContact(3, "Other", withEmail("a@x.com")),
		newContact(1, "Juan Perez", withEmail("a@x.com")),
		newContact(2, "juan perez", withPhone("8091234567")),
		newContact(4, "Unrelated", withPhone("8090000000")),
	}

	groups := FindGroups(contacts, 1)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, int64(1), g.Survivor.ID)
	assert.Equal(t, []int64{2, 3}, g.IDs())
	assert.Equal(t, []string{"email:a@x.com", "name:juanperez"}, g.SharedKeys)
}

func TestFindGroups_MinKeys(t *testing.T) {
	contacts := []*contact.Contact{
		newContact(1, "Juan Perez", withEmail("a@x.com"), withPhone("8091234567")),
		newContact(2, "Juan Perez", withPhone("8091234567")),
		newContact(3, "Maria Perez", withPhone("8091234567")),
	}

	assert.Len(t, FindGroups(contacts, 1)[0].Duplicates, 2)

	groups := FindGroups(contacts, 2)
	require.Len(t, groups, 1)
	assert.Equal(t, []int64{2}, groups[0].IDs(), "a shared household phone alone is not enough")
}

func TestFindGroups_NoDuplicates(t *testing.T) {
	contacts := []*contact.Contact{
		newContact(1, "Ana"),
		newContact(2, "Luis", withPhone("1234")),
		newContact(3, "Pedro", withPhone("1234")),
	}
	assert.Empty(t, FindGroups(contacts, 1))
}

func TestReconcile(t *testing.T) {
	survivor := newContact(1, "Juan Perez", withEmail("juan@x.com"))
	survivor.Metadata = map[string]string{"source": "crm"}

	dup2 := newContact(2, "juan perez", withPhone("8091234567"), withEmail("other@x.com"))
	dup2.Observations = "VIP"
	dup2.Metadata = map[string]string{"source": "legacy", "branch": "santiago"}

	dup3 := newContact(3, "Juan P.", withPhone("8095550000"))
	dup3.IdentificationType = "CEDULA"
	dup3.IdentificationNumber = "00112345678"
	dup3.Metadata = map[string]string{"branch": "la vega", "legacy_id": "77"}

	g := &Group{Survivor: survivor, Duplicates: []*contact.Contact{dup3, dup2}}
	filled := Reconcile(g)

	assert.Equal(t, "juan@x.com", survivor.Email)
	assert.Equal(t, "8091234567", survivor.Phone, "lowest duplicate ID wins")
	assert.Equal(t, "VIP", survivor.Observations)
	assert.Equal(t, "00112345678", survivor.IdentificationNumber)
	assert.Equal(t, "CEDULA", survivor.IdentificationType)
	assert.Equal(t, map[string]string{
		"source":    "crm",
		"branch":    "santiago",
		"legacy_id": "77",
	}, survivor.Metadata)
	assert.ElementsMatch(t, []string{"phone", "identification_type", "identification_number", "observations", "metadata"}, filled)
}
