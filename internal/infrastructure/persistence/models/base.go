package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TenantModel adds the tenant column to BaseModel
type TenantModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainTenantEntity populates TenantModel from a domain TenantEntity
func (m *TenantModel) FromDomainTenantEntity(e shared.TenantEntity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.TenantID = e.TenantID
}

// ToTenantEntity converts TenantModel to a domain TenantEntity
func (m *TenantModel) ToTenantEntity() shared.TenantEntity {
	return shared.TenantEntity{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
	}
}

// StringMap is a map stored as a JSON object (jsonb on postgres)
type StringMap map[string]string

// Value implements driver.Valuer
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *StringMap) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = StringMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringMap", value)
	}
	out := StringMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// IntMap is a string to count map stored as a JSON object
type IntMap map[string]int

// Value implements driver.Valuer
func (m IntMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *IntMap) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = IntMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into IntMap", value)
	}
	out := IntMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// All returns every model, in dependency order, for AutoMigrate in tests.
// Production schemas come from the SQL migrations.
func All() []any {
	return []any{
		&WorkspaceModel{},
		&UserModel{},
		&ContactModel{},
		&TaxModel{},
		&ProductModel{},
		&InvoiceModel{},
		&InvoiceItemModel{},
		&QuotationModel{},
		&PaymentModel{},
		&AddressModel{},
		&ProductStockModel{},
		&MasterTableModel{},
		&MasterTableItemModel{},
		&PrescriptionModel{},
		&PrescriptionMasterItemModel{},
		&RegistryEntryModel{},
		&ImportHistoryModel{},
	}
}
