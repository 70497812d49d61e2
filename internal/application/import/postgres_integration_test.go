//go:build integration

package importapp_test

import (
	"context"
	"testing"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/erp/importer/internal/infrastructure/dgii"
	"github.com/erp/importer/internal/infrastructure/persistence"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/erp/importer/internal/infrastructure/persistence/persistencetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	db := persistencetest.NewPostgres(t)
	tenantID := uuid.New()
	require.NoError(t, db.Create(&models.UserModel{
		TenantModel: models.TenantModel{TenantID: tenantID},
		Email:       "ops@optica.do",
		Name:        "Ops",
	}).Error)
	return &fixture{db: db, tenantID: tenantID, repos: persistence.NewRepositories(db)}
}

func TestPostgres_ImportContacts(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container")
	}
	ctx := context.Background()
	f := newPostgresFixture(t)
	path := writeFile(t, "contacts.csv", contactsCSV)

	summary, err := f.service().ImportFile(ctx, f.request(bulk.ImportEntityContacts, path))
	require.NoError(t, err)

	// skipped rows roll back to their savepoint without aborting the run
	assert.Equal(t, 3, summary.Imported)
	assert.Equal(t, 3, summary.Skipped)
	assert.Len(t, f.contacts(t), 3)

	runs, err := importapp.NewHistoryService(persistence.NewGormImportHistoryRepository(f.db)).
		List(ctx, f.tenantID, importapp.ListHistoryFilter{}, shared.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, bulk.ImportStatusCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].SuccessRows)
}

func TestPostgres_SyncRegistry(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container")
	}
	ctx := context.Background()
	f := newPostgresFixture(t)

	path := writeFile(t, "DGII_RNC.TXT", ""+
		"101000001|FARMACIA LUZ|LUZ|COMERCIO||||||ACTIVO|NORMAL\r\n"+
		"101000002|OPTICA SUR||||||||ACTIVO|NORMAL\r\n"+
		"101000001|FARMACIA LUZ SRL|LUZ|COMERCIO||||||ACTIVO|NORMAL\r\n"+
		"bad line\r\n")

	svc := f.service(importapp.WithRegistryFeed(dgii.NewFeed(config.DGIIConfig{})))

	summary, err := svc.SyncRegistry(ctx, f.tenantID, path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Reasons[importapp.ReasonDuplicateRNC])
	assert.Equal(t, 1, summary.Reasons[importapp.ReasonMalformedLine])

	entry, err := f.repos.Registry().FindByRNC(ctx, "101000001")
	require.NoError(t, err)
	assert.Equal(t, "FARMACIA LUZ SRL", entry.Name)

	// a second sync replaces the mirror
	path = writeFile(t, "DGII_RNC.TXT", "131000009|NUEVA SA||||||||ACTIVO|NORMAL\n")
	_, err = svc.SyncRegistry(ctx, f.tenantID, path)
	require.NoError(t, err)

	count, err := f.repos.Registry().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
