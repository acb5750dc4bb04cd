package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorByDSN(t *testing.T) {
	d, isSqlite := Dialector("sqlite://:memory:")
	assert.True(t, isSqlite)
	assert.Equal(t, "sqlite", d.Name())

	d, isSqlite = Dialector("host=localhost user=app dbname=plans sslmode=disable")
	assert.False(t, isSqlite)
	assert.Equal(t, "postgres", d.Name())
}

func TestNewGormDBFromDSNOpensSqlite(t *testing.T) {
	db, err := NewGormDBFromDSN("sqlite://:memory:", false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
