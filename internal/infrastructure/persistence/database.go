package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/erp/importer/internal/infrastructure/migration"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SchemaMigrationsTable is where cmd/migrate records the applied version
const SchemaMigrationsTable = migration.Table

// ErrSchemaNotMigrated means the database has never been migrated, or a
// migration stopped halfway.
var ErrSchemaNotMigrated = errors.New("importer schema is not migrated, run 'migrate up'")

// Database is the importer's postgres connection
type Database struct {
	DB *gorm.DB
}

// Open connects to postgres with the configured pool limits and pings it
// within ctx.
func Open(ctx context.Context, cfg *config.DatabaseConfig, sqlLog gormlogger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 sqlLog,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	d := &Database{DB: db}
	if err := d.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

// Ping checks that the connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SchemaVersion returns the applied migration version. It fails with
// ErrSchemaNotMigrated when nothing was applied or the last run is dirty.
func (d *Database) SchemaVersion(ctx context.Context) (uint, error) {
	var present bool
	err := d.DB.WithContext(ctx).
		Raw("SELECT to_regclass(?) IS NOT NULL", SchemaMigrationsTable).
		Row().Scan(&present)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema: %w", err)
	}
	if !present {
		return 0, ErrSchemaNotMigrated
	}

	var (
		version int64
		dirty   bool
	)
	err = d.DB.WithContext(ctx).
		Raw("SELECT version, dirty FROM " + SchemaMigrationsTable + " LIMIT 1").
		Row().Scan(&version, &dirty)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaNotMigrated, err)
	}
	if dirty {
		return uint(version), fmt.Errorf("%w: version %d is dirty", ErrSchemaNotMigrated, version)
	}
	return uint(version), nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// tenantScope restricts a query to one tenant
func tenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// isPostgres reports whether db talks to postgres, as opposed to the
// sqlite driver used by tests.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
