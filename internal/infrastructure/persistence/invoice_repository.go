package persistence

import (
	"context"
	"errors"

	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// ExistsByDocumentNumber checks whether a document number is already used
func (r *GormInvoiceRepository) ExistsByDocumentNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(tenantScope(tenantID)).
		Where("document_number = ?", documentNumber).
		Count(&count).Error
	return count > 0, err
}

// FindByDocumentNumber loads an invoice with its items
func (r *GormInvoiceRepository) FindByDocumentNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("document_number = ?", documentNumber).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a new invoice and its items in insertion order
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(inv)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	inv.ID = model.ID
	for i := range model.Items {
		inv.Items[i].ID = model.Items[i].ID
		inv.Items[i].InvoiceID = model.ID
	}
	return nil
}

var _ invoice.InvoiceRepository = (*GormInvoiceRepository)(nil)
