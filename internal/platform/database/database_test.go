package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profreg/internal/platform/config"
)

func TestRebind(t *testing.T) {
	q := "SELECT 1 FROM profession WHERE email = ? OR phone = ?"

	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, "SELECT 1 FROM profession WHERE email = $1 OR phone = $2", Postgres.Rebind(q))
	assert.Equal(t, " FROM DUAL", MySQL.FromDual())
	assert.Empty(t, Postgres.FromDual())
}

func TestDSN(t *testing.T) {
	t.Run("mysql with default port", func(t *testing.T) {
		driver, dsn, dialect, err := DSN(config.DatabaseConfig{
			Driver: config.DriverMySQL, User: "app", Password: "pw", Host: "db", Name: "registry",
		})
		require.NoError(t, err)
		assert.Equal(t, "mysql", driver)
		assert.Equal(t, MySQL, dialect)
		assert.Equal(t, "app:pw@tcp(db:3306)/registry", dsn)
	})

	t.Run("mysql host already carrying a port", func(t *testing.T) {
		_, dsn, _, err := DSN(config.DatabaseConfig{
			Driver: config.DriverMySQL, User: "app", Password: "pw", Host: "db:3307", Port: "9999", Name: "registry",
		})
		require.NoError(t, err)
		assert.Equal(t, "app:pw@tcp(db:3307)/registry", dsn)
	})

	t.Run("postgres escapes credentials", func(t *testing.T) {
		driver, dsn, dialect, err := DSN(config.DatabaseConfig{
			Driver: config.DriverPostgres, User: "app", Password: "p@ss", Host: "pg", Port: "6543", Name: "registry",
		})
		require.NoError(t, err)
		assert.Equal(t, "pgx", driver)
		assert.Equal(t, Postgres, dialect)
		assert.Equal(t, "postgres://app:p%40ss@pg:6543/registry", dsn)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, _, err := DSN(config.DatabaseConfig{Driver: "oracle"})
		assert.Error(t, err)
	})
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS profession")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
