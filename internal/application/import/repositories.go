package importapp

import (
	"context"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/catalog"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/domain/prescription"
	"github.com/erp/importer/internal/domain/registry"
	"github.com/erp/importer/internal/domain/workspace"
)

// Repositories gives an import run access to every repository it writes
// through. All of them share one transaction.
type Repositories interface {
	// Isolate runs fn in a nested transaction. When fn returns an error only
	// the work done inside fn is rolled back.
	Isolate(ctx context.Context, fn func(repos Repositories) error) error

	Workspaces() workspace.WorkspaceRepository
	Users() workspace.UserRepository
	Contacts() contact.ContactRepository
	Products() catalog.ProductRepository
	Taxes() catalog.TaxRepository
	Invoices() invoice.InvoiceRepository
	Prescriptions() prescription.PrescriptionRepository
	MasterTables() prescription.MasterTableRepository
	Registry() registry.EntryRepository
	History() bulk.ImportHistoryRepository
}

// TransactionScope runs a whole import inside one database transaction.
// If fn returns an error or panics everything is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
