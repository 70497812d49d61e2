package dedupe_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/erp/importer/internal/application/dedupe"
	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/domain/workspace"
	"github.com/erp/importer/internal/infrastructure/persistence"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/erp/importer/internal/infrastructure/persistence/persistencetest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mergeFixture struct {
	db       *gorm.DB
	tenantID uuid.UUID
	repos    *persistence.GormRepositories
	ws       *workspace.Workspace
	history  *importapp.HistoryService
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	db := persistencetest.NewDB(t)
	f := &mergeFixture{
		db:       db,
		tenantID: uuid.New(),
		repos:    persistence.NewRepositories(db),
		history:  importapp.NewHistoryService(persistence.NewGormImportHistoryRepository(db)),
	}
	ws, err := workspace.NewWorkspace(f.tenantID, "Principal")
	require.NoError(t, err)
	require.NoError(t, f.repos.Workspaces().Save(context.Background(), ws))
	f.ws = ws
	return f
}

func (f *mergeFixture) contact(t *testing.T, name, email, phone string, meta map[string]string) *contact.Contact {
	t.Helper()
	c, err := contact.NewContact(f.tenantID, f.ws.ID, name, contact.ContactTypeCustomer)
	require.NoError(t, err)
	c.Email = email
	c.Phone = phone
	for k, v := range meta {
		c.Metadata[k] = v
	}
	require.NoError(t, f.repos.Contacts().Save(context.Background(), c))
	return c
}

func (f *mergeFixture) merger() *dedupe.Merger {
	return dedupe.NewMerger(persistence.NewGormTransactionScope(f.db), f.history)
}

func (f *mergeFixture) seedThree(t *testing.T) (a, b, c *contact.Contact) {
	a = f.contact(t, "Juan Perez", "a@x.com", "", map[string]string{"source": "crm"})
	b = f.contact(t, "juan perez", "", "8091234567", map[string]string{"source": "pos", "branch": "norte"})
	c = f.contact(t, "Other", "a@x.com", "", nil)
	require.NoError(t, f.db.Create(&models.PaymentModel{
		TenantModel: models.TenantModel{TenantID: f.tenantID},
		ContactID:   c.ID,
		Amount:      decimal.NewFromInt(50),
	}).Error)
	return a, b, c
}

func TestMerger_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newMergeFixture(t)
	a, b, c := f.seedThree(t)

	report, err := f.merger().Run(ctx, dedupe.Options{TenantID: f.tenantID})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, a.ID, report.Groups[0].Survivor.ID)
	assert.Equal(t, []int64{b.ID, c.ID}, report.Groups[0].IDs())
	assert.Zero(t, report.Merged)

	all, err := f.repos.Contacts().FindAll(ctx, f.tenantID, contact.ContactFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	runs, err := f.history.List(ctx, f.tenantID, importapp.ListHistoryFilter{}, shared.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, runs)

	var out bytes.Buffer
	_, err = report.WriteTo(&out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "dry run")
	assert.Contains(t, out.String(), "keys: email:a@x.com, name:juanperez")
}

func TestMerger_Execute(t *testing.T) {
	ctx := context.Background()
	f := newMergeFixture(t)
	a, _, c := f.seedThree(t)

	report, err := f.merger().Run(ctx, dedupe.Options{TenantID: f.tenantID, Execute: true})
	require.NoError(t, err)
	assert.False(t, report.DryRun)
	assert.Equal(t, 2, report.Merged)
	assert.Equal(t, int64(1), report.Reassigned[contact.RefPayments])

	all, err := f.repos.Contacts().FindAll(ctx, f.tenantID, contact.ContactFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	survivor := all[0]
	assert.Equal(t, a.ID, survivor.ID)
	assert.Equal(t, "a@x.com", survivor.Email)
	assert.Equal(t, "8091234567", survivor.Phone)
	assert.Equal(t, map[string]string{"source": "crm", "branch": "norte"}, survivor.Metadata)

	var payment models.PaymentModel
	require.NoError(t, f.db.First(&payment).Error)
	assert.Equal(t, a.ID, payment.ContactID)
	assert.NotEqual(t, c.ID, payment.ContactID)

	runs, err := f.history.List(ctx, f.tenantID, importapp.ListHistoryFilter{EntityType: string(bulk.ImportEntityContactMerge)}, shared.DefaultPage())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, bulk.ImportStatusCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].SuccessRows)

	again, err := f.merger().Run(ctx, dedupe.Options{TenantID: f.tenantID, Execute: true})
	require.NoError(t, err)
	assert.Empty(t, again.Groups)
}

func TestMerger_MinKeys(t *testing.T) {
	f := newMergeFixture(t)
	f.seedThree(t)

	report, err := f.merger().Run(context.Background(), dedupe.Options{TenantID: f.tenantID, MinKeys: 2})
	require.NoError(t, err)
	assert.Empty(t, report.Groups)
}

func TestMerger_SkipsOtherContactTypes(t *testing.T) {
	ctx := context.Background()
	f := newMergeFixture(t)
	f.contact(t, "Dra. Ruiz", "", "", nil)
	doc, err := contact.NewContact(f.tenantID, f.ws.ID, "Dra. Ruiz", contact.ContactTypeOptometrist)
	require.NoError(t, err)
	require.NoError(t, f.repos.Contacts().Save(ctx, doc))

	report, err := f.merger().Run(ctx, dedupe.Options{TenantID: f.tenantID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Contacts)
	assert.Empty(t, report.Groups)
}

func TestMerger_UnknownWorkspace(t *testing.T) {
	f := newMergeFixture(t)

	_, err := f.merger().Run(context.Background(), dedupe.Options{TenantID: f.tenantID, Workspace: "Sucursal"})
	assert.ErrorIs(t, err, dedupe.ErrUnknownWorkspace)
}
