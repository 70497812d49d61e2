// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Each model has ToDomain and FromDomain mappers. Repositories in the parent
// package only ever hand domain entities to callers.
package models
