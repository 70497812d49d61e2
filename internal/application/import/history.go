package importapp

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
)

// HistoryService records and lists import runs. Records are written
// outside the run transaction so a failed run still leaves a trace.
type HistoryService struct {
	historyRepo bulk.ImportHistoryRepository
	now         func() time.Time
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(historyRepo bulk.ImportHistoryRepository) *HistoryService {
	return &HistoryService{historyRepo: historyRepo, now: time.Now}
}

// WithClock replaces the clock used for run timestamps
func (s *HistoryService) WithClock(now func() time.Time) *HistoryService {
	s.now = now
	return s
}

// Begin creates a pending history record
func (s *HistoryService) Begin(
	ctx context.Context,
	tenantID uuid.UUID,
	entityType bulk.ImportEntityType,
	fileName string,
	fileSize int64,
) (*bulk.ImportHistory, error) {
	history, err := bulk.NewImportHistory(tenantID, entityType, fileName, fileSize)
	if err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to save import history: %w", err)
	}
	return history, nil
}

// Start marks the run as processing
func (s *HistoryService) Start(ctx context.Context, history *bulk.ImportHistory) error {
	if err := history.Start(s.now()); err != nil {
		return err
	}
	return s.historyRepo.Save(ctx, history)
}

// Complete stores the final counts of a run
func (s *HistoryService) Complete(ctx context.Context, history *bulk.ImportHistory, summary *Summary) error {
	counts := bulk.RunCounts{
		Total:    summary.Total,
		Imported: summary.Imported,
		Skipped:  summary.Skipped,
		Reasons:  summary.Reasons,
		Errors:   summary.ErrorDetails(),
	}
	if err := history.Complete(s.now(), counts); err != nil {
		return err
	}
	return s.historyRepo.Save(ctx, history)
}

// Fail marks the run as failed. The save uses a fresh context so a
// cancelled run is still recorded.
func (s *HistoryService) Fail(ctx context.Context, history *bulk.ImportHistory, cause error) error {
	if err := history.Fail(s.now(), cause.Error()); err != nil {
		return err
	}
	return s.historyRepo.Save(context.WithoutCancel(ctx), history)
}

// ListHistoryFilter defines the filter options for listing import histories
type ListHistoryFilter struct {
	EntityType string
	Status     string
}

// List returns the newest runs of the tenant first
func (s *HistoryService) List(
	ctx context.Context,
	tenantID uuid.UUID,
	filter ListHistoryFilter,
	page shared.Page,
) ([]*bulk.ImportHistory, error) {
	var repoFilter bulk.ImportHistoryFilter

	if filter.EntityType != "" {
		entityType := bulk.ImportEntityType(filter.EntityType)
		if !entityType.IsValid() {
			return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Invalid entity type: %s", filter.EntityType))
		}
		repoFilter.EntityType = &entityType
	}

	if filter.Status != "" {
		status := bulk.ImportStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid status: %s", filter.Status))
		}
		repoFilter.Status = &status
	}

	return s.historyRepo.FindRecent(ctx, tenantID, repoFilter, page)
}
