package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindBySKU finds a product by its SKU within a tenant
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error)

	// FindByName finds a product by exact name within a tenant
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Product, error)

	// FindAll returns all products of a tenant ordered by ID
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*Product, error)

	// ExistsBySKU checks if a SKU is taken within a tenant
	ExistsBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (bool, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}

// TaxRepository defines the interface for tax persistence
type TaxRepository interface {
	// FindByName finds a tax by exact name within a tenant
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Tax, error)

	// Save creates or updates a tax
	Save(ctx context.Context, tax *Tax) error
}
