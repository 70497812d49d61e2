package catalog

import (
	"strings"
	"time"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxSKULength is the longest SKU the catalog accepts
const MaxSKULength = 50

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product represents a sellable item identified by SKU
type Product struct {
	shared.TenantEntity
	SKU    string
	Name   string
	Price  decimal.Decimal
	TaxID  *int64
	Status ProductStatus
}

// NewProduct creates a new active product
func NewProduct(tenantID uuid.UUID, sku, name string, price decimal.Decimal) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}

	return &Product{
		TenantEntity: shared.NewTenantEntity(tenantID),
		SKU:          strings.ToUpper(sku),
		Name:         strings.TrimSpace(name),
		Price:        price,
		Status:       ProductStatusActive,
	}, nil
}

// AssignTax links the product to a tax
func (p *Product) AssignTax(taxID int64) {
	p.TaxID = &taxID
	p.UpdatedAt = time.Now()
}

// validateSKU validates the product SKU
func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if len(sku) > MaxSKULength {
		return shared.NewDomainError("INVALID_SKU", "Product SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !IsSKURune(r) && r != '.' {
			return shared.NewDomainError("INVALID_SKU", "Product SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// IsSKURune reports whether r may appear in a generated SKU
func IsSKURune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// validateProductName validates the product name
func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
