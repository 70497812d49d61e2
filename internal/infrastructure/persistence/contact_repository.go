package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormContactRepository implements ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

func (r *GormContactRepository) first(ctx context.Context, query *gorm.DB) (*contact.Contact, error) {
	var model models.ContactModel
	if err := query.WithContext(ctx).Order("id ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a contact by ID
func (r *GormContactRepository) FindByID(ctx context.Context, tenantID uuid.UUID, id int64) (*contact.Contact, error) {
	return r.first(ctx, r.db.Scopes(tenantScope(tenantID)).Where("id = ?", id))
}

// FindByName finds a contact by exact name within a workspace
func (r *GormContactRepository) FindByName(ctx context.Context, tenantID uuid.UUID, workspaceID int64, name string) (*contact.Contact, error) {
	return r.first(ctx, r.db.Scopes(tenantScope(tenantID)).
		Where("workspace_id = ? AND name = ?", workspaceID, name))
}

// FindByIdentificationNumber finds the oldest contact holding the number
func (r *GormContactRepository) FindByIdentificationNumber(ctx context.Context, tenantID uuid.UUID, number string) (*contact.Contact, error) {
	if number == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(ctx, r.db.Scopes(tenantScope(tenantID)).Where("identification_number = ?", number))
}

// ExistsByName checks whether a contact with the exact name exists in the workspace
func (r *GormContactRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, workspaceID int64, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ContactModel{}).
		Scopes(tenantScope(tenantID)).
		Where("workspace_id = ? AND name = ?", workspaceID, name).
		Count(&count).Error
	return count > 0, err
}

// ExistsByIdentificationNumber checks whether any contact holds the number
func (r *GormContactRepository) ExistsByIdentificationNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	if number == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ContactModel{}).
		Scopes(tenantScope(tenantID)).
		Where("identification_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

// FindAll returns contacts ordered by ID ascending
func (r *GormContactRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter contact.ContactFilter) ([]*contact.Contact, error) {
	query := r.db.WithContext(ctx).Scopes(tenantScope(tenantID))
	if filter.WorkspaceID != nil {
		query = query.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	var rows []models.ContactModel
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*contact.Contact, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates the contact when new, otherwise updates it
func (r *GormContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	var model models.ContactModel
	model.FromDomain(c)

	db := r.db.WithContext(ctx)
	if c.IsNew() {
		if err := db.Create(&model).Error; err != nil {
			return err
		}
		c.ID = model.ID
		return nil
	}
	return db.Save(&model).Error
}

// DeleteByIDs deletes contacts by ID
func (r *GormContactRepository) DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).
		Where("id IN ?", ids).
		Delete(&models.ContactModel{}).Error
}

// ReassignReferences repoints every contact reference from the given
// contacts to the target. The returned map holds rows changed per reference.
func (r *GormContactRepository) ReassignReferences(ctx context.Context, tenantID uuid.UUID, from []int64, to int64) (map[string]int64, error) {
	changed := make(map[string]int64, len(contact.References))
	if len(from) == 0 {
		return changed, nil
	}

	for _, ref := range contact.References {
		table, column, ok := strings.Cut(ref, ".")
		if !ok {
			return nil, fmt.Errorf("malformed reference %q", ref)
		}
		result := r.db.WithContext(ctx).Table(table).
			Where("tenant_id = ?", tenantID).
			Where(column+" IN ?", from).
			Update(column, to)
		if result.Error != nil {
			return nil, fmt.Errorf("reassign %s: %w", ref, result.Error)
		}
		changed[ref] = result.RowsAffected
	}
	return changed, nil
}

// Ensure GormContactRepository implements ContactRepository
var _ contact.ContactRepository = (*GormContactRepository)(nil)
