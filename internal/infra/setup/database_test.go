package setup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/infra/setup"
)

func TestDBConfig_DSN(t *testing.T) {
	dsn, err := setup.DBConfig{Driver: "mysql", User: "u", Password: "p", Host: "h", Port: "3306", Name: "x"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(h:3306)/x?charset=utf8mb4&parseTime=True&loc=Local", dsn)

	dsn, err = setup.DBConfig{Driver: "postgres", User: "u", Password: "p", Host: "h", Port: "5432", Name: "x"}.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "dbname=x")

	_, err = setup.DBConfig{Driver: "sqlite"}.DSN()
	assert.Error(t, err)

	_, err = setup.DBConfig{Driver: "oracle"}.DSN()
	assert.Error(t, err)
}

func TestInitDBAndMigrate_SQLite(t *testing.T) {
	db, err := setup.InitDB(setup.DBConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, setup.MigrateDB(db))
	for _, model := range setup.Models() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.Error(t, setup.MigrateDB(nil))
}
