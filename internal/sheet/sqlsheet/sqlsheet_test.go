package sqlsheet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lherron/pipeboard/internal/db"
	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/sheet"
)

// setupTestDB creates a temporary SQLite database with migrations applied.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestStore_SQLite(t *testing.T) {
	runStoreTests(t, New(setupTestDB(t)))
}

func TestStore_Postgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("PIPEBOARD_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("PIPEBOARD_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := db.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if _, err := database.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	runStoreTests(t, New(database))
}

func runStoreTests(t *testing.T, s *Store) {
	ctx := context.Background()

	t.Run("header from migration", func(t *testing.T) {
		rows, err := s.Rows(ctx, domain.TableRequirements)
		if err != nil {
			t.Fatalf("Rows failed: %v", err)
		}
		if got := sheet.Header(rows); !reflect.DeepEqual(got, domain.Columns[domain.TableRequirements]) {
			t.Errorf("header = %v, want %v", got, domain.Columns[domain.TableRequirements])
		}
		if len(rows) != 1 {
			t.Errorf("expected empty table, got %d rows", len(rows)-1)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		if _, err := s.Rows(ctx, "Nope"); !errors.Is(err, sheet.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
		if err := s.AppendRow(ctx, "Nope", sheet.Row{"x"}); !errors.Is(err, sheet.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("append set delete", func(t *testing.T) {
		table := domain.TableSignoffs
		for _, row := range []sheet.Row{
			{"s1", "r1", "Alice", "2024-01-01T00:00:00.000Z"},
			{"s2", "r1", "Bob"},
			{"s3", "r2", "Carol", "2024-01-03T00:00:00.000Z"},
		} {
			if err := s.AppendRow(ctx, table, row); err != nil {
				t.Fatalf("AppendRow failed: %v", err)
			}
		}
		if err := s.AppendRow(ctx, table, sheet.Row{"a", "b", "c", "d", "e"}); !errors.Is(err, sheet.ErrTooManyValues) {
			t.Fatalf("expected ErrTooManyValues, got %v", err)
		}

		if err := s.SetCell(ctx, table, 2, 3, "2024-01-02T00:00:00.000Z"); err != nil {
			t.Fatalf("SetCell failed: %v", err)
		}
		if err := s.DeleteRow(ctx, table, 1); err != nil {
			t.Fatalf("DeleteRow failed: %v", err)
		}

		rows, err := s.Rows(ctx, table)
		if err != nil {
			t.Fatalf("Rows failed: %v", err)
		}
		want := []sheet.Row{
			{"id", "requirementId", "personName", "signedAt"},
			{"s2", "r1", "Bob", "2024-01-02T00:00:00.000Z"},
			{"s3", "r2", "Carol", "2024-01-03T00:00:00.000Z"},
		}
		if !reflect.DeepEqual(rows, want) {
			t.Errorf("rows = %v, want %v", rows, want)
		}

		// Indexes shift after a delete.
		if err := s.SetCell(ctx, table, 1, 2, "Robert"); err != nil {
			t.Fatalf("SetCell failed: %v", err)
		}
		rows, _ = s.Rows(ctx, table)
		if rows[1][2] != "Robert" {
			t.Errorf("row 1 = %v, want personName Robert", rows[1])
		}
	})

	t.Run("index bounds", func(t *testing.T) {
		table := domain.TableDiagrams
		if err := s.AppendRow(ctx, table, sheet.Row{"d1", "c1", "{}"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		if err := s.SetCell(ctx, table, 0, 0, "x"); !errors.Is(err, sheet.ErrRowOutOfRange) {
			t.Errorf("expected ErrRowOutOfRange for header, got %v", err)
		}
		if err := s.SetCell(ctx, table, 2, 0, "x"); !errors.Is(err, sheet.ErrRowOutOfRange) {
			t.Errorf("expected ErrRowOutOfRange, got %v", err)
		}
		if err := s.SetCell(ctx, table, 1, 3, "x"); !errors.Is(err, sheet.ErrColOutOfRange) {
			t.Errorf("expected ErrColOutOfRange, got %v", err)
		}
		if err := s.DeleteRow(ctx, table, 5); !errors.Is(err, sheet.ErrRowOutOfRange) {
			t.Errorf("expected ErrRowOutOfRange, got %v", err)
		}
	})

	t.Run("values stored as text", func(t *testing.T) {
		table := domain.TableTechnologies
		if err := s.AppendRow(ctx, table, sheet.Row{"t1", "r1", "Vault", "tool", "pilot", 42.5, nil}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		rows, _ := s.Rows(ctx, table)
		if rows[1][5] != "42.5" || rows[1][6] != "" {
			t.Errorf("row = %#v", rows[1])
		}
	})

	t.Run("ensure table and list", func(t *testing.T) {
		if err := s.EnsureTable(ctx, "Notes", []string{"id", "body"}); err != nil {
			t.Fatalf("EnsureTable failed: %v", err)
		}
		if err := s.EnsureTable(ctx, "Notes", []string{"id"}); err != nil {
			t.Fatalf("EnsureTable on existing table failed: %v", err)
		}
		rows, err := s.Rows(ctx, "Notes")
		if err != nil {
			t.Fatalf("Rows failed: %v", err)
		}
		if got := sheet.Header(rows); !reflect.DeepEqual(got, []string{"id", "body"}) {
			t.Errorf("header = %v, existing table must be left untouched", got)
		}

		names, err := s.Tables(ctx)
		if err != nil {
			t.Fatalf("Tables failed: %v", err)
		}
		seen := make(map[string]bool)
		for _, n := range names {
			seen[n] = true
		}
		if !seen["Notes"] || !seen[domain.TableCategories] || seen["schema_migrations"] {
			t.Errorf("Tables() = %v", names)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}
