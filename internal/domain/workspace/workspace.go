package workspace

import (
	"context"
	"strings"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
)

// Workspace groups the contacts and documents of a tenant
type Workspace struct {
	shared.TenantEntity
	Name string
}

// NewWorkspace creates a new workspace
func NewWorkspace(tenantID uuid.UUID, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Workspace name cannot be empty")
	}
	return &Workspace{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
	}, nil
}

// User is an account that can own imported documents
type User struct {
	shared.TenantEntity
	Email string
	Name  string
}

// WorkspaceRepository defines the interface for workspace persistence
type WorkspaceRepository interface {
	// FindAll returns the workspaces of a tenant ordered by ID
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*Workspace, error)

	// Save creates or updates a workspace
	Save(ctx context.Context, w *Workspace) error
}

// UserRepository defines the lookups the importers need for users
type UserRepository interface {
	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)

	// FindFirst returns the oldest user of the tenant
	FindFirst(ctx context.Context, tenantID uuid.UUID) (*User, error)
}
