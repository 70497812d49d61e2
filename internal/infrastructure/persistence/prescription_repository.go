package persistence

import (
	"context"
	"errors"

	"github.com/erp/importer/internal/domain/prescription"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPrescriptionRepository implements PrescriptionRepository using GORM
type GormPrescriptionRepository struct {
	db *gorm.DB
}

// NewGormPrescriptionRepository creates a new GormPrescriptionRepository
func NewGormPrescriptionRepository(db *gorm.DB) *GormPrescriptionRepository {
	return &GormPrescriptionRepository{db: db}
}

// ExistsByExternalRef checks whether a prescription with the reference exists.
// An empty reference never matches.
func (r *GormPrescriptionRepository) ExistsByExternalRef(ctx context.Context, tenantID uuid.UUID, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PrescriptionModel{}).
		Scopes(tenantScope(tenantID)).
		Where("external_ref = ?", ref).
		Count(&count).Error
	return count > 0, err
}

// Create persists the prescription and its item links
func (r *GormPrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	var model models.PrescriptionModel
	model.FromDomain(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

// FindByID loads a prescription with its item links
func (r *GormPrescriptionRepository) FindByID(ctx context.Context, tenantID uuid.UUID, id int64) (*prescription.Prescription, error) {
	var model models.PrescriptionModel
	err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).
		Preload("Items").
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormMasterTableRepository implements MasterTableRepository using GORM
type GormMasterTableRepository struct {
	db *gorm.DB
}

// NewGormMasterTableRepository creates a new GormMasterTableRepository
func NewGormMasterTableRepository(db *gorm.DB) *GormMasterTableRepository {
	return &GormMasterTableRepository{db: db}
}

// FindOrCreateTable returns the table with the name, creating it when missing
func (r *GormMasterTableRepository) FindOrCreateTable(ctx context.Context, tenantID uuid.UUID, name string) (*prescription.MasterTable, error) {
	var model models.MasterTableModel
	err := r.db.WithContext(ctx).
		Where(models.MasterTableModel{TenantModel: models.TenantModel{TenantID: tenantID}, Name: name}).
		Order("id ASC").
		FirstOrCreate(&model).Error
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindItems returns the items of a table ordered by ID
func (r *GormMasterTableRepository) FindItems(ctx context.Context, tenantID uuid.UUID, tableID int64) ([]*prescription.MasterTableItem, error) {
	var rows []models.MasterTableItemModel
	err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).
		Where("master_table_id = ?", tableID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*prescription.MasterTableItem, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SaveItem creates or updates an item
func (r *GormMasterTableRepository) SaveItem(ctx context.Context, item *prescription.MasterTableItem) error {
	var model models.MasterTableItemModel
	model.FromDomain(item)
	if item.IsNew() {
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
		item.ID = model.ID
		return nil
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

var (
	_ prescription.PrescriptionRepository = (*GormPrescriptionRepository)(nil)
	_ prescription.MasterTableRepository  = (*GormMasterTableRepository)(nil)
)
