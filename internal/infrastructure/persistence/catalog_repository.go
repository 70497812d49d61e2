package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/importer/internal/domain/catalog"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) first(ctx context.Context, query *gorm.DB) (*catalog.Product, error) {
	var model models.ProductModel
	if err := query.WithContext(ctx).Order("id ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySKU finds a product by SKU. SKUs are stored uppercase.
func (r *GormProductRepository) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.Product, error) {
	return r.first(ctx, r.db.Scopes(tenantScope(tenantID)).Where("sku = ?", strings.ToUpper(sku)))
}

// FindByName finds a product by exact name
func (r *GormProductRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*catalog.Product, error) {
	return r.first(ctx, r.db.Scopes(tenantScope(tenantID)).Where("name = ?", name))
}

// FindAll returns all products of a tenant ordered by ID
func (r *GormProductRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*catalog.Product, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// ExistsBySKU checks if a SKU is taken within a tenant
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Scopes(tenantScope(tenantID)).
		Where("sku = ?", strings.ToUpper(sku)).
		Count(&count).Error
	return count > 0, err
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	var model models.ProductModel
	model.FromDomain(product)
	if product.IsNew() {
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
		product.ID = model.ID
		return nil
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// GormTaxRepository implements TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindByName finds a tax by exact name
func (r *GormTaxRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*catalog.Tax, error) {
	var model models.TaxModel
	err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).
		Where("name = ?", name).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a tax
func (r *GormTaxRepository) Save(ctx context.Context, tax *catalog.Tax) error {
	var model models.TaxModel
	model.FromDomain(tax)
	if tax.IsNew() {
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
		tax.ID = model.ID
		return nil
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

var (
	_ catalog.ProductRepository = (*GormProductRepository)(nil)
	_ catalog.TaxRepository     = (*GormTaxRepository)(nil)
)
