package store

import (
	"log/slog"
	"testing"

	"github.com/dukerupert/bodycontrol/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:", slog.Default())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }
