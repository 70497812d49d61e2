package persistence

import (
	"context"
	"errors"

	"github.com/erp/importer/internal/domain/registry"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRegistryRepository implements registry.EntryRepository using GORM
type GormRegistryRepository struct {
	db *gorm.DB
}

// NewGormRegistryRepository creates a new GormRegistryRepository
func NewGormRegistryRepository(db *gorm.DB) *GormRegistryRepository {
	return &GormRegistryRepository{db: db}
}

// Truncate removes every entry. Postgres uses TRUNCATE; other dialects
// fall back to an unconditional DELETE.
func (r *GormRegistryRepository) Truncate(ctx context.Context) error {
	table := models.RegistryEntryModel{}.TableName()
	if isPostgres(r.db) {
		return r.db.WithContext(ctx).Exec("TRUNCATE TABLE " + table).Error
	}
	return r.db.WithContext(ctx).Exec("DELETE FROM " + table).Error
}

// UpsertBatch inserts entries, updating every column when the RNC exists.
// Callers must remove duplicate RNCs first: postgres rejects a statement
// that touches the same row twice.
func (r *GormRegistryRepository) UpsertBatch(ctx context.Context, entries []*registry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.RegistryEntryModel, len(entries))
	for i, e := range entries {
		rows[i].FromDomain(e)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rnc"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
}

// FindByRNC finds an entry by RNC
func (r *GormRegistryRepository) FindByRNC(ctx context.Context, rnc string) (*registry.Entry, error) {
	var model models.RegistryEntryModel
	if err := r.db.WithContext(ctx).Where("rnc = ?", rnc).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Count returns the number of entries
func (r *GormRegistryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RegistryEntryModel{}).Count(&count).Error
	return count, err
}

var _ registry.EntryRepository = (*GormRegistryRepository)(nil)
