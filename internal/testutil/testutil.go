package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lherron/pipeboard/internal/db"
	"github.com/lherron/pipeboard/internal/seed"
	"github.com/lherron/pipeboard/internal/sheet/memory"
	"github.com/lherron/pipeboard/internal/sheet/sqlsheet"
)

// TempDB creates a temporary, migrated SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempSheets returns a SQLite-backed row store with every table created.
func TempSheets(t *testing.T) *sqlsheet.Store {
	t.Helper()
	database, _ := TempDB(t)
	return sqlsheet.New(database)
}

// SeededMemory returns an in-memory row store holding the sample dataset.
func SeededMemory(t *testing.T) *memory.Store {
	t.Helper()
	sheets := memory.New()
	if _, err := seed.Load(context.Background(), sheets, false); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	return sheets
}

// WriteFile writes content to a file in a temporary directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}
