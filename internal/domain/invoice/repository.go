package invoice

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// ExistsByDocumentNumber checks whether a document number is already used
	ExistsByDocumentNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (bool, error)

	// FindByDocumentNumber loads an invoice with its items
	FindByDocumentNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (*Invoice, error)

	// Create persists a new invoice and its items
	Create(ctx context.Context, inv *Invoice) error
}
