package models

import (
	"github.com/erp/importer/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for products
type ProductModel struct {
	TenantModel
	SKU    string                `gorm:"column:sku;type:varchar(50);not null;index"`
	Name   string                `gorm:"type:varchar(200);not null;index"`
	Price  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TaxID  *int64                `gorm:"index"`
	Status catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		TenantEntity: m.ToTenantEntity(),
		SKU:          m.SKU,
		Name:         m.Name,
		Price:        m.Price,
		TaxID:        m.TaxID,
		Status:       m.Status,
	}
}

// FromDomain populates the model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainTenantEntity(p.TenantEntity)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Price = p.Price
	m.TaxID = p.TaxID
	m.Status = p.Status
}

// TaxModel is the persistence model for taxes
type TaxModel struct {
	TenantModel
	Name string          `gorm:"type:varchar(100);not null;index"`
	Rate decimal.Decimal `gorm:"type:decimal(5,2);not null"`
}

// TableName returns the table name for GORM
func (TaxModel) TableName() string {
	return "taxes"
}

// ToDomain converts the model to a domain Tax
func (m *TaxModel) ToDomain() *catalog.Tax {
	return &catalog.Tax{TenantEntity: m.ToTenantEntity(), Name: m.Name, Rate: m.Rate}
}

// FromDomain populates the model from a domain Tax
func (m *TaxModel) FromDomain(t *catalog.Tax) {
	m.FromDomainTenantEntity(t.TenantEntity)
	m.Name = t.Name
	m.Rate = t.Rate
}
