package models

import (
	"time"

	"github.com/erp/importer/internal/domain/prescription"
)

// PrescriptionModel is the persistence model for optical prescriptions
type PrescriptionModel struct {
	TenantModel
	WorkspaceID       int64      `gorm:"not null;index"`
	ExternalRef       string     `gorm:"type:varchar(50);index"`
	PatientID         int64      `gorm:"not null;index"`
	OptometristID     *int64     `gorm:"index"`
	IssuedAt          *time.Time `gorm:"type:date"`
	OdSphere          *string    `gorm:"type:varchar(10)"`
	OdCylinder        *string    `gorm:"type:varchar(10)"`
	OdAxis            *string    `gorm:"type:varchar(10)"`
	OdAdd             *string    `gorm:"type:varchar(10)"`
	OsSphere          *string    `gorm:"type:varchar(10)"`
	OsCylinder        *string    `gorm:"type:varchar(10)"`
	OsAxis            *string    `gorm:"type:varchar(10)"`
	OsAdd             *string    `gorm:"type:varchar(10)"`
	PupillaryDistance *string    `gorm:"type:varchar(10)"`
	Notes             string     `gorm:"type:text"`

	Items []PrescriptionMasterItemModel `gorm:"foreignKey:PrescriptionID"`
}

// TableName returns the table name for GORM
func (PrescriptionModel) TableName() string {
	return "prescriptions"
}

// ToDomain converts the model to a domain Prescription
func (m *PrescriptionModel) ToDomain() *prescription.Prescription {
	p := &prescription.Prescription{
		TenantEntity:      m.ToTenantEntity(),
		WorkspaceID:       m.WorkspaceID,
		ExternalRef:       m.ExternalRef,
		PatientID:         m.PatientID,
		OptometristID:     m.OptometristID,
		IssuedAt:          m.IssuedAt,
		Right:             prescription.Eye{Sphere: m.OdSphere, Cylinder: m.OdCylinder, Axis: m.OdAxis, Add: m.OdAdd},
		Left:              prescription.Eye{Sphere: m.OsSphere, Cylinder: m.OsCylinder, Axis: m.OsAxis, Add: m.OsAdd},
		PupillaryDistance: m.PupillaryDistance,
		Notes:             m.Notes,
		Items:             make([]prescription.ItemLink, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		p.Items = append(p.Items, prescription.ItemLink{MasterTableItemID: it.MasterTableItemID, Tag: it.Tag})
	}
	return p
}

// FromDomain populates the model and its item links from a domain Prescription
func (m *PrescriptionModel) FromDomain(p *prescription.Prescription) {
	m.FromDomainTenantEntity(p.TenantEntity)
	m.WorkspaceID = p.WorkspaceID
	m.ExternalRef = p.ExternalRef
	m.PatientID = p.PatientID
	m.OptometristID = p.OptometristID
	m.IssuedAt = p.IssuedAt
	m.OdSphere, m.OdCylinder, m.OdAxis, m.OdAdd = p.Right.Sphere, p.Right.Cylinder, p.Right.Axis, p.Right.Add
	m.OsSphere, m.OsCylinder, m.OsAxis, m.OsAdd = p.Left.Sphere, p.Left.Cylinder, p.Left.Axis, p.Left.Add
	m.PupillaryDistance = p.PupillaryDistance
	m.Notes = p.Notes
	m.Items = make([]PrescriptionMasterItemModel, len(p.Items))
	for i, l := range p.Items {
		m.Items[i] = PrescriptionMasterItemModel{MasterTableItemID: l.MasterTableItemID, Tag: l.Tag}
	}
}

// PrescriptionMasterItemModel links a prescription to a master table item
type PrescriptionMasterItemModel struct {
	PrescriptionID    int64            `gorm:"primaryKey;autoIncrement:false"`
	MasterTableItemID int64            `gorm:"primaryKey;autoIncrement:false"`
	Tag               prescription.Tag `gorm:"primaryKey;type:varchar(20)"`
}

// TableName returns the table name for GORM
func (PrescriptionMasterItemModel) TableName() string {
	return "prescription_master_items"
}

// MasterTableModel is the persistence model for master tables
type MasterTableModel struct {
	TenantModel
	Name string `gorm:"type:varchar(100);not null;index"`
}

// TableName returns the table name for GORM
func (MasterTableModel) TableName() string {
	return "master_tables"
}

// ToDomain converts the model to a domain MasterTable
func (m *MasterTableModel) ToDomain() *prescription.MasterTable {
	return &prescription.MasterTable{TenantEntity: m.ToTenantEntity(), Name: m.Name}
}

// MasterTableItemModel is the persistence model for master table items
type MasterTableItemModel struct {
	TenantModel
	MasterTableID int64  `gorm:"not null;index"`
	Name          string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (MasterTableItemModel) TableName() string {
	return "master_table_items"
}

// ToDomain converts the model to a domain MasterTableItem
func (m *MasterTableItemModel) ToDomain() *prescription.MasterTableItem {
	return &prescription.MasterTableItem{
		TenantEntity:  m.ToTenantEntity(),
		MasterTableID: m.MasterTableID,
		Name:          m.Name,
	}
}

// FromDomain populates the model from a domain MasterTableItem
func (m *MasterTableItemModel) FromDomain(item *prescription.MasterTableItem) {
	m.FromDomainTenantEntity(item.TenantEntity)
	m.MasterTableID = item.MasterTableID
	m.Name = item.Name
}
