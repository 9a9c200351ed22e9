package repository

import (
	"log"
	"os"
	"testing"

	"inkwell/internal/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")

	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Repository tests skipped: sqlite unavailable: %v", err)
		os.Exit(0)
	}

	if err := database.Migrate(testDB); err != nil {
		log.Fatalf("Failed to migrate test schema: %v", err)
	}

	os.Exit(m.Run())
}

func truncateTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{
		"subscriptions", "likes", "comments", "posts", "categories", "tags", "users",
	} {
		if err := testDB.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clear %s: %v", table, err)
		}
	}
}
