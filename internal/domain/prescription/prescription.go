package prescription

import (
	"context"
	"strings"
	"time"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
)

// Tag identifies the role of a master table in a prescription
type Tag string

const (
	TagLensType  Tag = "lens_type"
	TagDrops     Tag = "drops"
	TagFrame     Tag = "frame"
	TagTreatment Tag = "treatment"
)

// Tags lists every tag a prescription row may carry
var Tags = []Tag{TagLensType, TagDrops, TagFrame, TagTreatment}

// Eye holds the refraction values of one eye. Values are kept as the
// cleaned decimal text so that "+0.25" and "-1.50" round-trip unchanged.
type Eye struct {
	Sphere   *string
	Cylinder *string
	Axis     *string
	Add      *string
}

// IsEmpty reports whether no refraction value is present
func (e Eye) IsEmpty() bool {
	return e.Sphere == nil && e.Cylinder == nil && e.Axis == nil && e.Add == nil
}

// ItemLink attaches a master table item to a prescription
type ItemLink struct {
	MasterTableItemID int64
	Tag               Tag
}

// Prescription is an optical prescription for a patient
type Prescription struct {
	shared.TenantEntity
	WorkspaceID       int64
	ExternalRef       string
	PatientID         int64
	OptometristID     *int64
	IssuedAt          *time.Time
	Right             Eye // OD
	Left              Eye // OS
	PupillaryDistance *string
	Notes             string
	Items             []ItemLink
}

// NewPrescription creates a prescription for a patient
func NewPrescription(tenantID uuid.UUID, workspaceID int64, externalRef string, patientID int64) (*Prescription, error) {
	if patientID == 0 {
		return nil, shared.NewDomainError("INVALID_PATIENT", "Prescription requires a patient")
	}
	return &Prescription{
		TenantEntity: shared.NewTenantEntity(tenantID),
		WorkspaceID:  workspaceID,
		ExternalRef:  strings.TrimSpace(externalRef),
		PatientID:    patientID,
		Items:        make([]ItemLink, 0),
	}, nil
}

// AttachItem links a master table item under a tag, ignoring repeats
func (p *Prescription) AttachItem(itemID int64, tag Tag) {
	for _, l := range p.Items {
		if l.MasterTableItemID == itemID && l.Tag == tag {
			return
		}
	}
	p.Items = append(p.Items, ItemLink{MasterTableItemID: itemID, Tag: tag})
}

// MasterTable is a tenant-defined controlled vocabulary
type MasterTable struct {
	shared.TenantEntity
	Name string
}

// MasterTableItem is one value of a master table
type MasterTableItem struct {
	shared.TenantEntity
	MasterTableID int64
	Name          string
}

// PrescriptionRepository defines the interface for prescription persistence
type PrescriptionRepository interface {
	// ExistsByExternalRef checks whether a prescription with the reference exists
	ExistsByExternalRef(ctx context.Context, tenantID uuid.UUID, ref string) (bool, error)

	// Create persists the prescription and its item links
	Create(ctx context.Context, p *Prescription) error
}

// MasterTableRepository defines the interface for master table persistence
type MasterTableRepository interface {
	// FindOrCreateTable returns the table with the name, creating it when missing
	FindOrCreateTable(ctx context.Context, tenantID uuid.UUID, name string) (*MasterTable, error)

	// FindItems returns the items of a table ordered by ID
	FindItems(ctx context.Context, tenantID uuid.UUID, tableID int64) ([]*MasterTableItem, error)

	// SaveItem creates or updates an item
	SaveItem(ctx context.Context, item *MasterTableItem) error
}
