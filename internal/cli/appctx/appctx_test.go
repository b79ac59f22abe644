package appctx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/config"
	"github.com/lherron/pipeboard/internal/db"
	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/sheet/memory"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("db", "", "Database path")
	cmd.Flags().String("backend", "", "Backend")
	cmd.Flags().String("variant", "", "Variant")
	return cmd
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIPEBOARD_DB_PATH", filepath.Join(t.TempDir(), "test.db"))

	app, err := Bootstrap(testCommand(), ConfigOnly())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil || app.Logger == nil {
		t.Error("Config and Logger should be set")
	}
	if app.Sheets != nil || app.Store != nil {
		t.Error("backend should not be opened when NeedsStore is false")
	}
}

func TestBootstrap_WithDB(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close()

	t.Setenv("PIPEBOARD_BACKEND", "sqlite")
	t.Setenv("PIPEBOARD_DB_PATH", dbPath)

	app, err := Bootstrap(testCommand(), DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.DB == nil || app.Sheets == nil || app.Store == nil {
		t.Fatal("sqlite backend should open DB, Sheets and Store")
	}

	tree, err := app.Store.Tree(context.Background(), domain.VariantFull)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if len(tree.Categories) != 0 {
		t.Errorf("fresh database should be empty, got %d categories", len(tree.Categories))
	}
}

func TestBootstrap_PendingMigrations(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "fresh.db")
	t.Setenv("PIPEBOARD_BACKEND", "sqlite")

	cmd := testCommand()
	if err := cmd.Flags().Set("db", dbPath); err != nil {
		t.Fatal(err)
	}

	_, err := Bootstrap(cmd, DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "requires migration") {
		t.Fatalf("expected migration error, got %v", err)
	}

	app, err := Bootstrap(cmd, Options{NeedsStore: true, SkipMigrationCheck: true})
	if err != nil {
		t.Fatalf("Bootstrap with SkipMigrationCheck failed: %v", err)
	}
	defer app.Close()
	if app.DB.Path() != dbPath {
		t.Errorf("--db flag ignored: %s", app.DB.Path())
	}
}

func TestOpen_MemoryBackendIsSeeded(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendMemory, Variant: "reduced", LogLevel: "error"}
	app, err := Open(context.Background(), cfg, DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer app.Close()

	if _, ok := app.Sheets.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", app.Sheets)
	}

	svc := app.Service()
	if svc.Variant() != domain.VariantReduced {
		t.Errorf("Variant() = %s", svc.Variant())
	}
	resp := svc.Get(context.Background(), "getData")
	if _, failed := resp.Error(); failed {
		t.Fatalf("getData failed: %v", resp)
	}
	if pipelines, ok := resp["data"].([]domain.Pipeline); !ok || len(pipelines) != 2 {
		t.Errorf("expected two seeded pipelines, got %#v", resp["data"])
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := &config.Config{Backend: "mongo", Variant: "full"}
	if _, err := Open(context.Background(), cfg, ConfigOnly()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestOpen_WebhooksDeliveredBeforeClose(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := &config.Config{
		Backend:     config.BackendMemory,
		Variant:     "full",
		LogLevel:    "error",
		WebhookURLs: []string{server.URL + "/{action}"},
	}
	app, err := Open(context.Background(), cfg, DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if app.Webhooks == nil {
		t.Fatal("expected a webhook dispatcher")
	}

	resp := app.Service().Post(context.Background(), []byte(`{"action":"updateRequirementStatus","id":"req-1","status":"done"}`))
	if _, failed := resp.Error(); failed {
		t.Fatalf("update failed: %v", resp)
	}
	app.Close()

	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 webhook delivery, got %d", got)
	}
}
