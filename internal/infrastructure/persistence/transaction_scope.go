package persistence

import (
	"context"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/catalog"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/domain/prescription"
	"github.com/erp/importer/internal/domain/registry"
	"github.com/erp/importer/internal/domain/workspace"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// One import run executes inside one transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error or panics, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos importapp.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// GormRepositories gives access to every repository bound to one
// connection or transaction.
type GormRepositories struct {
	tx *gorm.DB
}

// NewRepositories binds all repositories to db. Outside a transaction each
// call autocommits.
func NewRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{tx: db}
}

// Isolate runs fn in a nested transaction. Inside Execute this is a
// SAVEPOINT, so a failing row rolls back alone and the run continues.
func (r *GormRepositories) Isolate(ctx context.Context, fn func(repos importapp.Repositories) error) error {
	return r.tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return fn(NewRepositories(sp))
	})
}

// Workspaces returns the workspace repository
func (r *GormRepositories) Workspaces() workspace.WorkspaceRepository {
	return NewGormWorkspaceRepository(r.tx)
}

// Users returns the user repository
func (r *GormRepositories) Users() workspace.UserRepository {
	return NewGormUserRepository(r.tx)
}

// Contacts returns the contact repository
func (r *GormRepositories) Contacts() contact.ContactRepository {
	return NewGormContactRepository(r.tx)
}

// Products returns the product repository
func (r *GormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Taxes returns the tax repository
func (r *GormRepositories) Taxes() catalog.TaxRepository {
	return NewGormTaxRepository(r.tx)
}

// Invoices returns the invoice repository
func (r *GormRepositories) Invoices() invoice.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Prescriptions returns the prescription repository
func (r *GormRepositories) Prescriptions() prescription.PrescriptionRepository {
	return NewGormPrescriptionRepository(r.tx)
}

// MasterTables returns the master table repository
func (r *GormRepositories) MasterTables() prescription.MasterTableRepository {
	return NewGormMasterTableRepository(r.tx)
}

// Registry returns the RNC registry repository
func (r *GormRepositories) Registry() registry.EntryRepository {
	return NewGormRegistryRepository(r.tx)
}

// History returns the import history repository
func (r *GormRepositories) History() bulk.ImportHistoryRepository {
	return NewGormImportHistoryRepository(r.tx)
}

var (
	_ importapp.TransactionScope = (*GormTransactionScope)(nil)
	_ importapp.Repositories     = (*GormRepositories)(nil)
)
