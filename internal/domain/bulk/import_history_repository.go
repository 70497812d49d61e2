package bulk

import (
	"context"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportHistoryFilter defines the filters for querying import histories
type ImportHistoryFilter struct {
	EntityType *ImportEntityType
	Status     *ImportStatus
}

// ImportHistoryRepository defines the interface for import history persistence
type ImportHistoryRepository interface {
	// FindByRunID finds an import history by its run ID
	FindByRunID(ctx context.Context, tenantID, runID uuid.UUID) (*ImportHistory, error)

	// FindRecent returns the newest runs first
	FindRecent(ctx context.Context, tenantID uuid.UUID, filter ImportHistoryFilter, page shared.Page) ([]*ImportHistory, error)

	// Save saves an import history (create or update)
	Save(ctx context.Context, history *ImportHistory) error
}
