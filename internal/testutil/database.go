package testutil

import (
	"testing"

	"fpscan/internal/database"
	"fpscan/internal/scan"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied,
// using FixedClock and sequential IDs. The database is automatically closed
// when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLDatabase {
	t.Helper()
	return NewTestDatabaseWithClock(t, FixedClock())
}

// NewTestDatabaseWithClock is NewTestDatabase with a caller-controlled clock.
func NewTestDatabaseWithClock(t *testing.T, clock scan.Clock) *database.SQLDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", clock, NewStubIDGenerator())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
