package contact

import (
	"context"

	"github.com/google/uuid"
)

// Reference tables that point at a contact. The merger repoints every one
// of them before a duplicate is deleted.
const (
	RefInvoices                 = "invoices.contact_id"
	RefQuotations               = "quotations.contact_id"
	RefPayments                 = "payments.contact_id"
	RefAddresses                = "addresses.contact_id"
	RefPrescriptionsPatient     = "prescriptions.patient_id"
	RefPrescriptionsOptometrist = "prescriptions.optometrist_id"
	RefProductStockSupplier     = "product_stocks.supplier_id"
)

// References lists the foreign keys in reassignment order
var References = []string{
	RefInvoices,
	RefQuotations,
	RefPayments,
	RefAddresses,
	RefPrescriptionsPatient,
	RefPrescriptionsOptometrist,
	RefProductStockSupplier,
}

// ContactFilter narrows FindAll
type ContactFilter struct {
	WorkspaceID *int64
	Type        *ContactType
}

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	// FindByID finds a contact by ID
	FindByID(ctx context.Context, tenantID uuid.UUID, id int64) (*Contact, error)

	// FindByName finds a contact by exact name within a workspace
	FindByName(ctx context.Context, tenantID uuid.UUID, workspaceID int64, name string) (*Contact, error)

	// FindByIdentificationNumber finds a contact holding the identification number
	FindByIdentificationNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Contact, error)

	// ExistsByName checks whether a contact with the exact name exists in the workspace
	ExistsByName(ctx context.Context, tenantID uuid.UUID, workspaceID int64, name string) (bool, error)

	// ExistsByIdentificationNumber checks whether any contact holds the identification number
	ExistsByIdentificationNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)

	// FindAll returns contacts ordered by ID ascending
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ContactFilter) ([]*Contact, error)

	// Save creates the contact when new, otherwise updates it
	Save(ctx context.Context, c *Contact) error

	// DeleteByIDs deletes contacts by ID
	DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error

	// ReassignReferences repoints every reference listed in References from
	// the given contacts to the target contact. It returns rows changed per reference.
	ReassignReferences(ctx context.Context, tenantID uuid.UUID, from []int64, to int64) (map[string]int64, error)
}
