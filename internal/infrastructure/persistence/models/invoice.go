package models

import (
	"time"

	"github.com/erp/importer/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	TenantModel
	WorkspaceID    int64                 `gorm:"not null;index"`
	DocumentNumber string                `gorm:"type:varchar(30);not null;index"`
	SubtypeID      int64                 `gorm:"not null"`
	ContactID      int64                 `gorm:"not null;index"`
	IssueDate      time.Time             `gorm:"type:date;not null"`
	DueDate        *time.Time            `gorm:"type:date"`
	Status         invoice.InvoiceStatus `gorm:"type:varchar(20);not null"`
	Subtotal       decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountTotal  decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	TaxTotal       decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Total          decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Notes          string                `gorm:"type:text"`
	CreatedBy      int64                 `gorm:"not null"`
	Items          []InvoiceItemModel    `gorm:"foreignKey:InvoiceID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		TenantEntity:   m.ToTenantEntity(),
		WorkspaceID:    m.WorkspaceID,
		DocumentNumber: m.DocumentNumber,
		SubtypeID:      m.SubtypeID,
		ContactID:      m.ContactID,
		IssueDate:      m.IssueDate,
		DueDate:        m.DueDate,
		Status:         m.Status,
		Subtotal:       m.Subtotal,
		DiscountTotal:  m.DiscountTotal,
		TaxTotal:       m.TaxTotal,
		Total:          m.Total,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		Items:          make([]*invoice.Item, 0, len(m.Items)),
	}
	for i := range m.Items {
		inv.Items = append(inv.Items, m.Items[i].ToDomain())
	}
	return inv
}

// FromDomain populates the model and its items from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainTenantEntity(inv.TenantEntity)
	m.WorkspaceID = inv.WorkspaceID
	m.DocumentNumber = inv.DocumentNumber
	m.SubtypeID = inv.SubtypeID
	m.ContactID = inv.ContactID
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Status = inv.Status
	m.Subtotal = inv.Subtotal
	m.DiscountTotal = inv.DiscountTotal
	m.TaxTotal = inv.TaxTotal
	m.Total = inv.Total
	m.Notes = inv.Notes
	m.CreatedBy = inv.CreatedBy
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i].FromDomain(item)
	}
}

// InvoiceItemModel is the persistence model for invoice lines
type InvoiceItemModel struct {
	BaseModel
	InvoiceID   int64           `gorm:"not null;index"`
	ProductID   int64           `gorm:"not null;index"`
	TaxID       *int64          `gorm:"index"`
	Description string          `gorm:"type:varchar(255)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the model to a domain Item
func (m *InvoiceItemModel) ToDomain() *invoice.Item {
	return &invoice.Item{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		ProductID:   m.ProductID,
		TaxID:       m.TaxID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Discount:    m.Discount,
		TaxAmount:   m.TaxAmount,
		Subtotal:    m.Subtotal,
	}
}

// FromDomain populates the model from a domain Item
func (m *InvoiceItemModel) FromDomain(item *invoice.Item) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.InvoiceID = item.InvoiceID
	m.ProductID = item.ProductID
	m.TaxID = item.TaxID
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Discount = item.Discount
	m.TaxAmount = item.TaxAmount
	m.Subtotal = item.Subtotal
}
