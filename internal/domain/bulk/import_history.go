package bulk

import (
	"fmt"
	"time"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportEntityType is what a run imports, or merges
type ImportEntityType string

const (
	ImportEntityContacts      ImportEntityType = "contacts"
	ImportEntityInvoices      ImportEntityType = "invoices"
	ImportEntityPrescriptions ImportEntityType = "prescriptions"
	ImportEntityProducts      ImportEntityType = "products"
	ImportEntityRNCRegistry   ImportEntityType = "rnc_registry"
	ImportEntityContactMerge  ImportEntityType = "contact_merge"
)

// IsValid checks if the entity type is known
func (e ImportEntityType) IsValid() bool {
	switch e {
	case ImportEntityContacts, ImportEntityInvoices, ImportEntityPrescriptions,
		ImportEntityProducts, ImportEntityRNCRegistry, ImportEntityContactMerge:
		return true
	}
	return false
}

// ImportStatus is the state of a run: pending, then processing, then
// completed or failed.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsValid checks if the status is known
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted, ImportStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the run is over
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// ImportErrorDetail is one skipped line kept on the run record
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// RunCounts are the final numbers of a completed run
type RunCounts struct {
	Total    int
	Imported int
	Skipped  int
	Reasons  map[string]int
	Errors   []ImportErrorDetail
}

// ImportHistory records one run of an importer or of the contact merge
type ImportHistory struct {
	shared.TenantEntity
	RunID        uuid.UUID           `json:"run_id"`
	EntityType   ImportEntityType    `json:"entity_type"`
	FileName     string              `json:"file_name"`
	FileSize     int64               `json:"file_size"`
	ArchiveKey   string              `json:"archive_key,omitempty"`
	TotalRows    int                 `json:"total_rows"`
	SuccessRows  int                 `json:"success_rows"`
	SkippedRows  int                 `json:"skipped_rows"`
	SkipReasons  map[string]int      `json:"skip_reasons,omitempty"`
	Status       ImportStatus        `json:"status"`
	ErrorDetails []ImportErrorDetail `json:"error_details,omitempty"`
	FailReason   string              `json:"fail_reason,omitempty"`
	ImportedBy   *int64              `json:"imported_by,omitempty"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// NewImportHistory creates a pending run record for fileName
func NewImportHistory(tenantID uuid.UUID, entityType ImportEntityType, fileName string, fileSize int64) (*ImportHistory, error) {
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Invalid entity type: %s", entityType))
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}

	return &ImportHistory{
		TenantEntity: shared.NewTenantEntity(tenantID),
		RunID:        uuid.New(),
		EntityType:   entityType,
		FileName:     fileName,
		FileSize:     fileSize,
		Status:       ImportStatusPending,
		SkipReasons:  make(map[string]int),
	}, nil
}

func invalidTransition(action string, from ImportStatus) error {
	return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot %s a run that is %s", action, from))
}

// SetImportedBy records the user the imported documents belong to
func (h *ImportHistory) SetImportedBy(userID int64) {
	h.ImportedBy = &userID
}

// Start moves a pending run to processing
func (h *ImportHistory) Start(at time.Time) error {
	if h.Status != ImportStatusPending {
		return invalidTransition("start", h.Status)
	}
	h.Status = ImportStatusProcessing
	h.StartedAt = &at
	h.UpdatedAt = at
	return nil
}

// Complete stores the counts of a processing run. Skipped rows never fail
// a run.
func (h *ImportHistory) Complete(at time.Time, counts RunCounts) error {
	if h.Status != ImportStatusProcessing {
		return invalidTransition("complete", h.Status)
	}
	h.Status = ImportStatusCompleted
	h.TotalRows = counts.Total
	h.SuccessRows = counts.Imported
	h.SkippedRows = counts.Skipped
	h.SkipReasons = counts.Reasons
	h.ErrorDetails = counts.Errors
	h.CompletedAt = &at
	h.UpdatedAt = at
	return nil
}

// Fail ends a run that has not finished yet
func (h *ImportHistory) Fail(at time.Time, reason string) error {
	if h.Status.IsTerminal() {
		return invalidTransition("fail", h.Status)
	}
	h.Status = ImportStatusFailed
	h.FailReason = reason
	h.CompletedAt = &at
	h.UpdatedAt = at
	return nil
}

// Elapsed returns how long a finished run took; zero while it is running
// or when it failed before starting.
func (h *ImportHistory) Elapsed() time.Duration {
	if h.StartedAt == nil || h.CompletedAt == nil {
		return 0
	}
	return h.CompletedAt.Sub(*h.StartedAt)
}
