package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/google/uuid"
)

// ImportHistoryModel stores one importer or merge run
type ImportHistoryModel struct {
	TenantModel
	RunID        uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex"`
	EntityType   bulk.ImportEntityType `gorm:"type:varchar(30);not null"`
	FileName     string                `gorm:"type:varchar(255);not null"`
	FileSize     int64                 `gorm:"not null;default:0"`
	ArchiveKey   string                `gorm:"type:varchar(512)"`
	TotalRows    int                   `gorm:"not null;default:0"`
	SuccessRows  int                   `gorm:"not null;default:0"`
	SkippedRows  int                   `gorm:"not null;default:0"`
	SkipReasons  IntMap                `gorm:"type:jsonb"`
	Status       bulk.ImportStatus     `gorm:"type:varchar(20);not null;default:'pending'"`
	ErrorDetails ErrorDetailList       `gorm:"type:jsonb"`
	FailReason   string                `gorm:"type:text"`
	ImportedBy   *int64
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_histories"
}

// ToDomain converts the row to a run record
func (m *ImportHistoryModel) ToDomain() *bulk.ImportHistory {
	return &bulk.ImportHistory{
		TenantEntity: m.ToTenantEntity(),
		RunID:        m.RunID,
		EntityType:   m.EntityType,
		FileName:     m.FileName,
		FileSize:     m.FileSize,
		ArchiveKey:   m.ArchiveKey,
		TotalRows:    m.TotalRows,
		SuccessRows:  m.SuccessRows,
		SkippedRows:  m.SkippedRows,
		SkipReasons:  map[string]int(m.SkipReasons),
		Status:       m.Status,
		ErrorDetails: []bulk.ImportErrorDetail(m.ErrorDetails),
		FailReason:   m.FailReason,
		ImportedBy:   m.ImportedBy,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// FromDomain copies a run record into the row
func (m *ImportHistoryModel) FromDomain(h *bulk.ImportHistory) {
	m.FromDomainTenantEntity(h.TenantEntity)
	m.RunID = h.RunID
	m.EntityType = h.EntityType
	m.FileName = h.FileName
	m.FileSize = h.FileSize
	m.ArchiveKey = h.ArchiveKey
	m.TotalRows = h.TotalRows
	m.SuccessRows = h.SuccessRows
	m.SkippedRows = h.SkippedRows
	m.SkipReasons = IntMap(h.SkipReasons)
	m.Status = h.Status
	m.ErrorDetails = ErrorDetailList(h.ErrorDetails)
	m.FailReason = h.FailReason
	m.ImportedBy = h.ImportedBy
	m.StartedAt = h.StartedAt
	m.CompletedAt = h.CompletedAt
}

// ErrorDetailList is the skipped line list stored as a JSON array
type ErrorDetailList []bulk.ImportErrorDetail

// Value implements driver.Valuer
func (l ErrorDetailList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]bulk.ImportErrorDetail(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. A corrupt column yields an empty list so
// the run itself can still be read.
func (l *ErrorDetailList) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ErrorDetailList", value)
	}
	var out []bulk.ImportErrorDetail
	if len(data) > 0 && json.Unmarshal(data, &out) != nil {
		out = nil
	}
	*l = out
	return nil
}
