package models

import (
	"time"

	"github.com/erp/importer/internal/domain/registry"
)

// RegistryEntryModel mirrors one taxpayer of the DGII RNC registry.
// The table is shared by all tenants.
type RegistryEntryModel struct {
	RNC            string     `gorm:"column:rnc;primaryKey;type:varchar(20)"`
	Name           string     `gorm:"type:varchar(255);not null"`
	CommercialName string     `gorm:"type:varchar(255)"`
	Category       string     `gorm:"type:varchar(100)"`
	RegisteredAt   *time.Time `gorm:"type:date"`
	Status         string     `gorm:"type:varchar(30)"`
	PaymentRegime  string     `gorm:"type:varchar(30)"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RegistryEntryModel) TableName() string {
	return "rnc_registry"
}

// ToDomain converts the model to a domain Entry
func (m *RegistryEntryModel) ToDomain() *registry.Entry {
	return &registry.Entry{
		RNC:            m.RNC,
		Name:           m.Name,
		CommercialName: m.CommercialName,
		Category:       m.Category,
		RegisteredAt:   m.RegisteredAt,
		Status:         m.Status,
		PaymentRegime:  m.PaymentRegime,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the model from a domain Entry
func (m *RegistryEntryModel) FromDomain(e *registry.Entry) {
	m.RNC = e.RNC
	m.Name = e.Name
	m.CommercialName = e.CommercialName
	m.Category = e.Category
	m.RegisteredAt = e.RegisteredAt
	m.Status = e.Status
	m.PaymentRegime = e.PaymentRegime
	m.UpdatedAt = e.UpdatedAt
}
