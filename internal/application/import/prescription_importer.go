package importapp

import (
	"context"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/prescription"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
)

// PrescriptionHandler imports optical prescriptions. Patients resolve to
// customers and optometrists to optometrist contacts; both are created
// when missing.
type PrescriptionHandler struct{}

// NewPrescriptionHandler creates a new PrescriptionHandler
func NewPrescriptionHandler() *PrescriptionHandler {
	return &PrescriptionHandler{}
}

// Entity implements Handler
func (h *PrescriptionHandler) Entity() bulk.ImportEntityType { return bulk.ImportEntityPrescriptions }

// Layout implements Handler
func (h *PrescriptionHandler) Layout() csvimport.Layout { return PrescriptionLayout }

// Required implements Handler
func (h *PrescriptionHandler) Required() []string { return []string{FieldPatientName} }

// Handle implements RowHandler
func (h *PrescriptionHandler) Handle(ctx context.Context, run *Run, repos Repositories, rec Record) RowResult {
	row := ParsePrescriptionRow(rec, run.Dates)
	if row.PatientName == "" {
		return Skip(ReasonMissingPatient, "prescription has no patient name")
	}

	if row.ExternalRef != "" {
		exists, err := repos.Prescriptions().ExistsByExternalRef(ctx, run.TenantID, row.ExternalRef)
		if err != nil {
			return persistFailure("check prescription reference", err)
		}
		if exists {
			return SkipValue(ReasonDuplicatePrescription, FieldExternalRef, row.ExternalRef, "prescription already imported")
		}
	}

	patient, _, err := run.Resolver.ResolveContact(ctx, repos, ContactQuery{
		WorkspaceID:          run.Workspace.ID,
		Name:                 row.PatientName,
		IdentificationNumber: row.PatientID,
		Type:                 contact.ContactTypeCustomer,
	})
	if err != nil {
		return persistFailure("resolve patient", err)
	}

	p, err := prescription.NewPrescription(run.TenantID, run.Workspace.ID, row.ExternalRef, patient.ID)
	if err != nil {
		return SkipValue(ReasonInvalidRow, FieldPatientName, row.PatientName, err.Error())
	}

	if row.OptometristName != "" {
		optometrist, _, err := run.Resolver.ResolveContact(ctx, repos, ContactQuery{
			WorkspaceID: run.Workspace.ID,
			Name:        row.OptometristName,
			Type:        contact.ContactTypeOptometrist,
		})
		if err != nil {
			return persistFailure("resolve optometrist", err)
		}
		p.OptometristID = &optometrist.ID
	}

	p.IssuedAt = row.IssuedAt
	p.Right = prescription.Eye{Sphere: row.OdSphere, Cylinder: row.OdCylinder, Axis: row.OdAxis, Add: row.OdAdd}
	p.Left = prescription.Eye{Sphere: row.OsSphere, Cylinder: row.OsCylinder, Axis: row.OsAxis, Add: row.OsAdd}
	p.PupillaryDistance = row.PupillaryDistance
	p.Notes = row.Notes

	for _, tag := range prescription.Tags {
		name, ok := row.Tagged[tag]
		if !ok {
			continue
		}
		item, _, err := run.Resolver.ResolveMasterItem(ctx, repos, tag, name)
		if err != nil {
			return persistFailure("resolve "+string(tag), err)
		}
		p.AttachItem(item.ID, tag)
	}

	if err := repos.Prescriptions().Create(ctx, p); err != nil {
		return persistFailure("save prescription", err)
	}
	return Ok()
}
