package models

import (
	"testing"
	"time"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/domain/prescription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMap_ValueScan(t *testing.T) {
	v, err := StringMap{"origen": "legacy"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"origen":"legacy"}`, v)

	var nilMap StringMap
	v, err = nilMap.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var m StringMap
	require.NoError(t, m.Scan([]byte(`{"a":"1"}`)))
	assert.Equal(t, StringMap{"a": "1"}, m)
	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)
	assert.Error(t, m.Scan(42))
}

func TestIntMap_Scan(t *testing.T) {
	var m IntMap
	require.NoError(t, m.Scan(`{"missing_name":3}`))
	assert.Equal(t, 3, m["missing_name"])
	assert.Error(t, m.Scan(`not json`))
}

func TestContactModel_Mapping(t *testing.T) {
	c, err := contact.NewContact(uuid.New(), 4, "Ana Gomez", contact.ContactTypeCustomer)
	require.NoError(t, err)
	c.ID = 9
	c.SetPhones("8095551234", "", "8295550000", "")
	c.Metadata["legacy_code"] = "C-1"

	var m ContactModel
	m.FromDomain(c)
	back := m.ToDomain()

	assert.Equal(t, c.ID, back.ID)
	assert.Equal(t, c.TenantID, back.TenantID)
	assert.Equal(t, int64(4), back.WorkspaceID)
	assert.Equal(t, "8295550000", back.Mobile)
	assert.Equal(t, "C-1", back.Metadata["legacy_code"])

	// the domain map is copied, not shared
	back.Metadata["x"] = "y"
	assert.NotContains(t, m.Metadata, "x")
}

func TestInvoiceModel_Mapping(t *testing.T) {
	inv, err := invoice.NewInvoice(uuid.New(), 1, "B0100000001", 1, 2, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	item, err := invoice.NewItem(3, "Lente", decimal.NewFromInt(2), decimal.NewFromInt(100), decimal.Zero, nil, decimal.NewFromInt(18))
	require.NoError(t, err)
	inv.AddItem(item)

	var m InvoiceModel
	m.FromDomain(inv)
	require.Len(t, m.Items, 1)

	back := m.ToDomain()
	require.Len(t, back.Items, 1)
	assert.True(t, back.Total.Equal(decimal.RequireFromString("236")))
	assert.Equal(t, "B0100000001", back.DocumentNumber)
}

func TestPrescriptionModel_Mapping(t *testing.T) {
	p, err := prescription.NewPrescription(uuid.New(), 1, "RX-1", 5)
	require.NoError(t, err)
	sph := "-1.25"
	p.Right.Sphere = &sph
	p.AttachItem(7, prescription.TagLensType)

	var m PrescriptionModel
	m.FromDomain(p)
	assert.Equal(t, &sph, m.OdSphere)
	assert.Nil(t, m.OsSphere)

	back := m.ToDomain()
	assert.Equal(t, "-1.25", *back.Right.Sphere)
	assert.True(t, back.Left.IsEmpty())
	assert.Equal(t, []prescription.ItemLink{{MasterTableItemID: 7, Tag: prescription.TagLensType}}, back.Items)
}

func TestImportHistoryModel_Mapping(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	h, err := bulk.NewImportHistory(uuid.New(), bulk.ImportEntityContacts, "clientes.csv", 120)
	require.NoError(t, err)
	require.NoError(t, h.Start(at))
	require.NoError(t, h.Complete(at.Add(time.Minute), bulk.RunCounts{
		Total:    3,
		Imported: 2,
		Skipped:  1,
		Reasons:  map[string]int{"missing_name": 1},
		Errors:   []bulk.ImportErrorDetail{{Row: 3, Code: "missing_name", Message: "name is empty"}},
	}))

	var m ImportHistoryModel
	m.FromDomain(h)
	value, err := m.ErrorDetails.Value()
	require.NoError(t, err)
	assert.Contains(t, value, "missing_name")

	back := m.ToDomain()
	assert.Equal(t, h.RunID, back.RunID)
	assert.Equal(t, bulk.ImportStatusCompleted, back.Status)
	assert.Equal(t, 1, back.SkipReasons["missing_name"])
	require.Len(t, back.ErrorDetails, 1)
	assert.Equal(t, 3, back.ErrorDetails[0].Row)
	assert.Equal(t, time.Minute, back.Elapsed())
}

func TestErrorDetailList_Scan(t *testing.T) {
	var l ErrorDetailList
	require.NoError(t, l.Scan([]byte(`[{"row":2,"code":"missing_name","message":"x"}]`)))
	require.Len(t, l, 1)
	assert.Equal(t, "missing_name", l[0].Code)

	require.NoError(t, l.Scan("{corrupt"))
	assert.Empty(t, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))

	empty, err := ErrorDetailList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}
