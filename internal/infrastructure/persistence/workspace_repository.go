package persistence

import (
	"context"
	"errors"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/domain/workspace"
	"github.com/erp/importer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWorkspaceRepository implements WorkspaceRepository using GORM
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewGormWorkspaceRepository creates a new GormWorkspaceRepository
func NewGormWorkspaceRepository(db *gorm.DB) *GormWorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// FindAll returns the workspaces of a tenant ordered by ID
func (r *GormWorkspaceRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*workspace.Workspace, error) {
	var rows []models.WorkspaceModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*workspace.Workspace, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a workspace
func (r *GormWorkspaceRepository) Save(ctx context.Context, w *workspace.Workspace) error {
	var model models.WorkspaceModel
	model.FromDomain(w)
	if w.IsNew() {
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return err
		}
		w.ID = model.ID
		return nil
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByEmail finds a user by email, ignoring case
func (r *GormUserRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*workspace.User, error) {
	var model models.UserModel
	err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).
		Where("LOWER(email) = LOWER(?)", email).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindFirst returns the oldest user of the tenant
func (r *GormUserRepository) FindFirst(ctx context.Context, tenantID uuid.UUID) (*workspace.User, error) {
	var model models.UserModel
	err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).Order("id ASC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var (
	_ workspace.WorkspaceRepository = (*GormWorkspaceRepository)(nil)
	_ workspace.UserRepository      = (*GormUserRepository)(nil)
)
