package persistence

import (
	"context"
	"errors"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportHistoryRepository implements ImportHistoryRepository using GORM
type GormImportHistoryRepository struct {
	db *gorm.DB
}

// NewGormImportHistoryRepository creates a new GormImportHistoryRepository
func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

// FindByRunID finds an import history by its run ID
func (r *GormImportHistoryRepository) FindByRunID(ctx context.Context, tenantID, runID uuid.UUID) (*bulk.ImportHistory, error) {
	var model models.ImportHistoryModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("run_id = ?", runID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns import histories newest first
func (r *GormImportHistoryRepository) FindRecent(
	ctx context.Context,
	tenantID uuid.UUID,
	filter bulk.ImportHistoryFilter,
	page shared.Page,
) ([]*bulk.ImportHistory, error) {
	query := r.db.WithContext(ctx).Scopes(tenantScope(tenantID))
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var rows []models.ImportHistoryModel
	if err := query.
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*bulk.ImportHistory, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save saves an import history (create or update)
func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	var model models.ImportHistoryModel
	model.FromDomain(history)
	if history.IsNew() {
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
		history.ID = model.ID
		return nil
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

var _ bulk.ImportHistoryRepository = (*GormImportHistoryRepository)(nil)
