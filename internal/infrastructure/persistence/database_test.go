package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	// gorm pings once on open
	mock.ExpectPing()
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	return db, mock
}

var (
	regclassQuery = regexp.QuoteMeta("SELECT to_regclass($1) IS NOT NULL")
	versionQuery  = regexp.QuoteMeta("SELECT version, dirty FROM importer_schema_migrations LIMIT 1")
)

func TestDatabase_PingAndClose(t *testing.T) {
	db, mock := newMockGorm(t)
	database := &Database{DB: db}

	mock.ExpectPing()
	require.NoError(t, database.Ping(context.Background()))

	mock.ExpectClose()
	require.NoError(t, database.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_PingFailure(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	assert.Error(t, (&Database{DB: db}).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_SchemaVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("migrated", func(t *testing.T) {
		db, mock := newMockGorm(t)
		mock.ExpectQuery(regclassQuery).WithArgs(SchemaMigrationsTable).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
		mock.ExpectQuery(versionQuery).
			WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(20250301090000), false))

		version, err := (&Database{DB: db}).SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint(20250301090000), version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("table missing", func(t *testing.T) {
		db, mock := newMockGorm(t)
		mock.ExpectQuery(regclassQuery).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))

		_, err := (&Database{DB: db}).SchemaVersion(ctx)
		assert.ErrorIs(t, err, ErrSchemaNotMigrated)
	})

	t.Run("no version row", func(t *testing.T) {
		db, mock := newMockGorm(t)
		mock.ExpectQuery(regclassQuery).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
		mock.ExpectQuery(versionQuery).WillReturnError(sql.ErrNoRows)

		_, err := (&Database{DB: db}).SchemaVersion(ctx)
		assert.ErrorIs(t, err, ErrSchemaNotMigrated)
	})

	t.Run("dirty", func(t *testing.T) {
		db, mock := newMockGorm(t)
		mock.ExpectQuery(regclassQuery).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
		mock.ExpectQuery(versionQuery).
			WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(7), true))

		version, err := (&Database{DB: db}).SchemaVersion(ctx)
		assert.ErrorIs(t, err, ErrSchemaNotMigrated)
		assert.Contains(t, err.Error(), "dirty")
		assert.Equal(t, uint(7), version)
	})
}

func TestIsPostgres(t *testing.T) {
	db, _ := newMockGorm(t)
	assert.True(t, isPostgres(db))
}
