package models

import (
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/workspace"
	"github.com/shopspring/decimal"
)

// WorkspaceModel is the persistence model for workspaces
type WorkspaceModel struct {
	TenantModel
	Name string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (WorkspaceModel) TableName() string {
	return "workspaces"
}

// ToDomain converts the model to a domain Workspace
func (m *WorkspaceModel) ToDomain() *workspace.Workspace {
	return &workspace.Workspace{TenantEntity: m.ToTenantEntity(), Name: m.Name}
}

// FromDomain populates the model from a domain Workspace
func (m *WorkspaceModel) FromDomain(w *workspace.Workspace) {
	m.FromDomainTenantEntity(w.TenantEntity)
	m.Name = w.Name
}

// UserModel is the persistence model for users
type UserModel struct {
	TenantModel
	Email string `gorm:"type:varchar(255);not null"`
	Name  string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *workspace.User {
	return &workspace.User{TenantEntity: m.ToTenantEntity(), Email: m.Email, Name: m.Name}
}

// ContactModel is the persistence model for contacts
type ContactModel struct {
	TenantModel
	WorkspaceID          int64               `gorm:"not null;index"`
	Name                 string              `gorm:"type:varchar(200);not null;index"`
	IdentificationType   string              `gorm:"type:varchar(20)"`
	IdentificationNumber string              `gorm:"type:varchar(30);index"`
	Phone                string              `gorm:"type:varchar(30)"`
	Phone2               string              `gorm:"column:phone2;type:varchar(30)"`
	Mobile               string              `gorm:"type:varchar(30)"`
	Fax                  string              `gorm:"type:varchar(30)"`
	Email                string              `gorm:"type:varchar(255)"`
	Type                 contact.ContactType `gorm:"type:varchar(20);not null"`
	Status               string              `gorm:"type:varchar(20);not null;default:'active'"`
	Observations         string              `gorm:"type:text"`
	CreditLimit          decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Metadata             StringMap           `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the model to a domain Contact
func (m *ContactModel) ToDomain() *contact.Contact {
	metadata := make(map[string]string, len(m.Metadata))
	for k, v := range m.Metadata {
		metadata[k] = v
	}
	return &contact.Contact{
		TenantEntity:         m.ToTenantEntity(),
		WorkspaceID:          m.WorkspaceID,
		Name:                 m.Name,
		IdentificationType:   m.IdentificationType,
		IdentificationNumber: m.IdentificationNumber,
		Phone:                m.Phone,
		Phone2:               m.Phone2,
		Mobile:               m.Mobile,
		Fax:                  m.Fax,
		Email:                m.Email,
		Type:                 m.Type,
		Status:               m.Status,
		Observations:         m.Observations,
		CreditLimit:          m.CreditLimit,
		Metadata:             metadata,
	}
}

// FromDomain populates the model from a domain Contact
func (m *ContactModel) FromDomain(c *contact.Contact) {
	m.FromDomainTenantEntity(c.TenantEntity)
	m.WorkspaceID = c.WorkspaceID
	m.Name = c.Name
	m.IdentificationType = c.IdentificationType
	m.IdentificationNumber = c.IdentificationNumber
	m.Phone = c.Phone
	m.Phone2 = c.Phone2
	m.Mobile = c.Mobile
	m.Fax = c.Fax
	m.Email = c.Email
	m.Type = c.Type
	m.Status = c.Status
	m.Observations = c.Observations
	m.CreditLimit = c.CreditLimit
	m.Metadata = StringMap(c.Metadata)
}

// The tables below only matter to the importer because they reference
// contacts; the merger repoints them before deleting duplicates.

// QuotationModel is a sales quotation
type QuotationModel struct {
	TenantModel
	ContactID int64           `gorm:"not null;index"`
	Total     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (QuotationModel) TableName() string {
	return "quotations"
}

// PaymentModel is a payment received from a contact
type PaymentModel struct {
	TenantModel
	ContactID int64           `gorm:"not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// AddressModel is a postal address of a contact
type AddressModel struct {
	TenantModel
	ContactID int64  `gorm:"not null;index"`
	Line1     string `gorm:"type:varchar(255)"`
	City      string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (AddressModel) TableName() string {
	return "addresses"
}

// ProductStockModel is the stock of a product bought from a supplier contact
type ProductStockModel struct {
	TenantModel
	ProductID  int64           `gorm:"not null;index"`
	SupplierID *int64          `gorm:"index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductStockModel) TableName() string {
	return "product_stocks"
}
