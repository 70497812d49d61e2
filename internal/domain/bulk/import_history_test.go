package bulk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportEntityType_IsValid(t *testing.T) {
	tests := []struct {
		name       string
		entityType ImportEntityType
		want       bool
	}{
		{"contacts", ImportEntityContacts, true},
		{"invoices", ImportEntityInvoices, true},
		{"prescriptions", ImportEntityPrescriptions, true},
		{"products", ImportEntityProducts, true},
		{"rnc registry", ImportEntityRNCRegistry, true},
		{"contact merge", ImportEntityContactMerge, true},
		{"invalid", ImportEntityType("invalid"), false},
		{"empty", ImportEntityType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entityType.IsValid())
		})
	}
}

func TestImportStatus_IsTerminal(t *testing.T) {
	assert.False(t, ImportStatusPending.IsTerminal())
	assert.False(t, ImportStatusProcessing.IsTerminal())
	assert.True(t, ImportStatusCompleted.IsTerminal())
	assert.True(t, ImportStatusFailed.IsTerminal())
	assert.False(t, ImportStatus("bogus").IsValid())
}

func TestNewImportHistory(t *testing.T) {
	tenantID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		h, err := NewImportHistory(tenantID, ImportEntityContacts, "contacts.csv", 1024)
		require.NoError(t, err)
		assert.Equal(t, ImportStatusPending, h.Status)
		assert.NotEqual(t, uuid.Nil, h.RunID)
		assert.Empty(t, h.ErrorDetails)
	})

	t.Run("invalid entity type", func(t *testing.T) {
		_, err := NewImportHistory(tenantID, ImportEntityType("x"), "a.csv", 1)
		assert.Error(t, err)
	})

	t.Run("empty file name", func(t *testing.T) {
		_, err := NewImportHistory(tenantID, ImportEntityContacts, "", 1)
		assert.Error(t, err)
	})

	t.Run("negative size", func(t *testing.T) {
		_, err := NewImportHistory(tenantID, ImportEntityContacts, "a.csv", -1)
		assert.Error(t, err)
	})
}

func TestImportHistory_Lifecycle(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	h, err := NewImportHistory(uuid.New(), ImportEntityInvoices, "inv.csv", 10)
	require.NoError(t, err)

	assert.Error(t, h.Complete(started, RunCounts{}), "cannot complete before start")

	require.NoError(t, h.Start(started))
	assert.Equal(t, started, *h.StartedAt)
	assert.Zero(t, h.Elapsed())
	assert.Error(t, h.Start(started))

	require.NoError(t, h.Complete(started.Add(90*time.Second), RunCounts{
		Total:    10,
		Imported: 8,
		Skipped:  2,
		Reasons:  map[string]int{"duplicate_document": 2},
		Errors:   []ImportErrorDetail{{Row: 3, Code: "duplicate_document", Message: "exists"}},
	}))
	assert.Equal(t, ImportStatusCompleted, h.Status)
	assert.Equal(t, 8, h.SuccessRows)
	assert.Equal(t, 2, h.SkipReasons["duplicate_document"])
	assert.Len(t, h.ErrorDetails, 1)
	assert.Equal(t, 90*time.Second, h.Elapsed())

	err = h.Fail(started, "late")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed")
}

func TestImportHistory_FailBeforeStart(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	h, err := NewImportHistory(uuid.New(), ImportEntityRNCRegistry, "rnc.zip", 0)
	require.NoError(t, err)

	require.NoError(t, h.Fail(at, "download failed"))
	assert.Equal(t, ImportStatusFailed, h.Status)
	assert.Equal(t, "download failed", h.FailReason)
	assert.Equal(t, at, *h.CompletedAt)
	assert.Zero(t, h.Elapsed())
}

func TestImportHistory_SetImportedBy(t *testing.T) {
	h, err := NewImportHistory(uuid.New(), ImportEntityContacts, "c.csv", 0)
	require.NoError(t, err)
	h.SetImportedBy(7)
	require.NotNil(t, h.ImportedBy)
	assert.Equal(t, int64(7), *h.ImportedBy)
}
