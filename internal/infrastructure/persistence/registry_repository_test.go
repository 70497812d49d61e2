package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/importer/internal/domain/registry"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/erp/importer/internal/infrastructure/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(rnc, name string) *registry.Entry {
	return &registry.Entry{RNC: rnc, Name: name, Status: "ACTIVO", UpdatedAt: time.Now()}
}

func TestGormRegistryRepository_Upsert(t *testing.T) {
	db := persistencetest.NewDB(t)
	repo := NewGormRegistryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, []*registry.Entry{
		entry("101000001", "ACME SRL"),
		entry("101000002", "FOO SA"),
	}))
	require.NoError(t, repo.UpsertBatch(ctx, []*registry.Entry{
		entry("101000001", "ACME DOMINICANA SRL"),
	}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	found, err := repo.FindByRNC(ctx, "101000001")
	require.NoError(t, err)
	assert.Equal(t, "ACME DOMINICANA SRL", found.Name)

	assert.NoError(t, repo.UpsertBatch(ctx, nil))
}

func TestGormRegistryRepository_TruncateSqlite(t *testing.T) {
	db := persistencetest.NewDB(t)
	repo := NewGormRegistryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, []*registry.Entry{entry("1", "A")}))
	require.NoError(t, repo.Truncate(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.FindByRNC(ctx, "1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormRegistryRepository_PostgresSQL(t *testing.T) {
	t.Run("truncate issues TRUNCATE TABLE", func(t *testing.T) {
		db, mock := newMockGorm(t)
		repo := NewGormRegistryRepository(db)

		mock.ExpectExec(`TRUNCATE TABLE rnc_registry`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, repo.Truncate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upsert conflicts on rnc", func(t *testing.T) {
		db, mock := newMockGorm(t)
		repo := NewGormRegistryRepository(db)

		mock.ExpectExec(`INSERT INTO "rnc_registry" .* ON CONFLICT \("rnc"\) DO UPDATE SET .*"name"="excluded"."name"`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.UpsertBatch(context.Background(), []*registry.Entry{entry("1", "A"), entry("2", "B")})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
