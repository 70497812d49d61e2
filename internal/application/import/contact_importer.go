package importapp

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/contact"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
)

// Metadata keys stamped on imported contacts
const (
	MetaImportRun  = "import_run"
	MetaImportLine = "import_line"
)

// ContactHandler imports contacts. A row whose name already exists in the
// workspace, or whose identification number is held by another contact,
// is skipped, so re-running a file creates nothing.
type ContactHandler struct{}

// NewContactHandler creates a new ContactHandler
func NewContactHandler() *ContactHandler {
	return &ContactHandler{}
}

// Entity implements Handler
func (h *ContactHandler) Entity() bulk.ImportEntityType { return bulk.ImportEntityContacts }

// Layout implements Handler
func (h *ContactHandler) Layout() csvimport.Layout { return ContactLayout }

// Required implements Handler
func (h *ContactHandler) Required() []string { return []string{FieldName} }

// Handle implements RowHandler
func (h *ContactHandler) Handle(ctx context.Context, run *Run, repos Repositories, rec Record) RowResult {
	row := ParseContactRow(rec)
	if row.Name == "" {
		return Skip(ReasonMissingName, "contact name is empty")
	}

	existing, err := run.Resolver.FindContactByName(ctx, repos, run.Workspace.ID, row.Name)
	if err != nil {
		return persistFailure("look up contact", err)
	}
	if existing != nil {
		return SkipValue(ReasonDuplicateName, FieldName, row.Name,
			fmt.Sprintf("contact %q already exists (id %d)", row.Name, existing.ID))
	}

	if row.IdentificationNumber != "" {
		taken, err := repos.Contacts().ExistsByIdentificationNumber(ctx, run.TenantID, row.IdentificationNumber)
		if err != nil {
			return persistFailure("check identification number", err)
		}
		if taken {
			return SkipValue(ReasonDuplicateIDNumber, FieldIdentificationNumber, row.IdentificationNumber,
				"identification number is held by another contact")
		}
	}

	c, err := contact.NewContact(run.TenantID, run.Workspace.ID, row.Name, row.Type)
	if err != nil {
		return SkipValue(ReasonInvalidRow, FieldName, row.Name, err.Error())
	}
	if row.IdentificationNumber != "" {
		c.SetIdentification(row.IdentificationType, row.IdentificationNumber)
	}
	c.SetPhones(row.Phone, row.Phone2, row.Mobile, row.Fax)
	c.Email = row.Email
	c.Observations = row.Observations
	if err := c.SetCreditLimit(row.CreditLimit); err != nil {
		return SkipValue(ReasonInvalidRow, FieldCreditLimit, row.CreditLimit.String(), err.Error())
	}
	c.Metadata[MetaImportRun] = run.Summary.RunID.String()
	c.Metadata[MetaImportLine] = filepath.Base(run.Summary.File) + ":" + strconv.Itoa(row.Line)

	if err := repos.Contacts().Save(ctx, c); err != nil {
		return persistFailure("save contact", err)
	}
	if err := run.Resolver.RememberContact(ctx, repos, c); err != nil {
		return persistFailure("cache contact", err)
	}
	return Ok()
}
