package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custom-gateway/internal/database/dbtest"
)

func TestMigrateIsRepeatable(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestHealth(t *testing.T) {
	db := dbtest.New(t)
	stats := db.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.NotEmpty(t, stats["open_connections"])
}
