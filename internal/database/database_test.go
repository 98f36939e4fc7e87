package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAutoMigrateAllModels(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(AllModels()...))

	for _, table := range []string{
		"users",
		"conversation_categories",
		"conversations",
		"conversation_participants",
		"conversation_bans",
		"messages",
		"uploaded_images",
	} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s", table)
	}
}
