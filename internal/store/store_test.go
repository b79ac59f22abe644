package store

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/id"
	"github.com/lherron/pipeboard/internal/sheet"
	"github.com/lherron/pipeboard/internal/sheet/memory"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 250_000_000, time.UTC)

// setupTestStore creates a memory-backed store with every table created empty.
func setupTestStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	sheets := memory.New()
	for _, name := range domain.AllTables() {
		if err := sheets.EnsureTable(context.Background(), name, domain.Columns[name]); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	s := New(sheets, WithIDProvider(id.NewSequence()), WithClock(func() time.Time { return fixedNow }))
	return s, sheets
}

func mustRows(t *testing.T, sheets sheet.Store, table string) []sheet.Row {
	t.Helper()
	rows, err := sheets.Rows(context.Background(), table)
	if err != nil {
		t.Fatalf("failed to read %s: %v", table, err)
	}
	return rows
}

func TestRequirementStore_UpdateStatus(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "sectionId", "name", "subname", "priority", "status", "sortOrder"},
		sheet.Row{"req-1", "s1", "Encrypt", "at rest", "high", "pending", "1"},
		sheet.Row{"req-2", "s1", "Audit", "", "low", "pending", "2"},
	)
	before := mustRows(t, sheets, domain.TableRequirements)

	if err := s.Requirements.UpdateStatus(ctx, "req-1", "done"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	after := mustRows(t, sheets, domain.TableRequirements)
	want := append(sheet.Row(nil), before[1]...)
	want[5] = "done"
	if !reflect.DeepEqual(after[1], want) {
		t.Errorf("row = %v, want %v", after[1], want)
	}
	if !reflect.DeepEqual(after[2], before[2]) {
		t.Errorf("unrelated row changed: %v", after[2])
	}
}

func TestRequirementStore_UpdateStatusUnknownID(t *testing.T) {
	s, sheets := setupTestStore(t)
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "status"},
		sheet.Row{"req-1", "pending"},
	)
	before := mustRows(t, sheets, domain.TableRequirements)

	if err := s.Requirements.UpdateStatus(context.Background(), "req-X", "done"); err != nil {
		t.Fatalf("UpdateStatus on unknown id should succeed, got %v", err)
	}
	if after := mustRows(t, sheets, domain.TableRequirements); !reflect.DeepEqual(after, before) {
		t.Errorf("table changed: %v", after)
	}
}

func TestRequirementStore_FirstMatchWins(t *testing.T) {
	s, sheets := setupTestStore(t)
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "status"},
		sheet.Row{"dup", "pending"},
		sheet.Row{"dup", "pending"},
	)

	if err := s.Requirements.UpdateStatus(context.Background(), "dup", "done"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	rows := mustRows(t, sheets, domain.TableRequirements)
	if rows[1][1] != "done" || rows[2][1] != "pending" {
		t.Errorf("expected only the first duplicate updated, got %v", rows[1:])
	}
}

func TestRequirementStore_MissingStatusColumn(t *testing.T) {
	s, sheets := setupTestStore(t)
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "name"},
		sheet.Row{"req-1", "Encrypt"},
	)

	err := s.Requirements.UpdateStatus(context.Background(), "req-1", "done")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestRequirementStore_StrictIDMatch(t *testing.T) {
	s, sheets := setupTestStore(t)
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "status"},
		sheet.Row{float64(7), "pending"},
	)

	if err := s.Requirements.UpdateStatus(context.Background(), "7", "done"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if rows := mustRows(t, sheets, domain.TableRequirements); rows[1][1] != "pending" {
		t.Errorf("numeric id cell must not match text id, got %v", rows[1])
	}
}

func TestTechnologyStore_UpdateProgress(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()
	sheets.Load(domain.TableTechnologies,
		sheet.Row{"id", "requirementId", "name", "type", "stage", "progress", "links"},
		sheet.Row{"tech-1", "req-1", "Vault", "tool", "pilot", "10", "[]"},
	)

	if err := s.Technologies.UpdateProgress(ctx, "tech-1", 75.0); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	in, err := s.Load(ctx, domain.VariantFull)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(in.Technologies) != 1 || in.Technologies[0].Progress != 75 {
		t.Errorf("technologies = %+v, want progress 75", in.Technologies)
	}
}

func TestSignoffStore_AddAndRemove(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()

	signoff, err := s.Signoffs.Add(ctx, "req-1", "Alice")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	want := &domain.Signoff{
		ID:            "signoff-00001",
		RequirementID: "req-1",
		PersonName:    "Alice",
		SignedAt:      "2024-05-01T09:30:00.250Z",
	}
	if !reflect.DeepEqual(signoff, want) {
		t.Errorf("Add() = %+v, want %+v", signoff, want)
	}

	rows := mustRows(t, sheets, domain.TableSignoffs)
	if len(rows) != 2 {
		t.Fatalf("expected one appended row, got %d data rows", len(rows)-1)
	}
	if !reflect.DeepEqual(rows[1], sheet.Row{"signoff-00001", "req-1", "Alice", "2024-05-01T09:30:00.250Z"}) {
		t.Errorf("appended row = %v", rows[1])
	}

	if _, err := s.Signoffs.Add(ctx, "req-1", "Bob"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Signoffs.Remove(ctx, "signoff-00001"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Signoffs.Remove(ctx, "signoff-99999"); err != nil {
		t.Fatalf("Remove on unknown id should succeed, got %v", err)
	}

	rows = mustRows(t, sheets, domain.TableSignoffs)
	if len(rows) != 2 || rows[1][0] != "signoff-00002" {
		t.Errorf("rows after remove = %v", rows)
	}
}

func TestSignoffStore_AddLaysOutByHeader(t *testing.T) {
	s, sheets := setupTestStore(t)
	sheets.Load(domain.TableSignoffs, sheet.Row{"signedAt", "id", "note", "personName", "requirementId"})

	if _, err := s.Signoffs.Add(context.Background(), "req-1", "Alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	rows := mustRows(t, sheets, domain.TableSignoffs)
	want := sheet.Row{"2024-05-01T09:30:00.250Z", "signoff-00001", "", "Alice", "req-1"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %v, want %v", rows[1], want)
	}
}

func TestSignoffStore_AddShowsUpUnderRequirement(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()
	sheets.Load(domain.TableCategories, sheet.Row{"id", "name", "sortOrder"}, sheet.Row{"cat-1", "Core", "1"})
	sheets.Load(domain.TablePipelines, sheet.Row{"id", "categoryId", "name", "sortOrder"}, sheet.Row{"p-1", "cat-1", "Main", "1"})
	sheets.Load(domain.TableClients, sheet.Row{"id", "pipelineId", "name"}, sheet.Row{"c-1", "p-1", "Acme"})
	sheets.Load(domain.TableSections, sheet.Row{"id", "clientId", "name", "sortOrder"}, sheet.Row{"s-1", "c-1", "Security", "1"})
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "sectionId", "name", "subname", "priority", "status", "sortOrder"},
		sheet.Row{"req-1", "s-1", "Encrypt", "", "high", "pending", "1"},
	)

	if _, err := s.Signoffs.Add(ctx, "req-1", "Alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tree, err := s.Tree(ctx, domain.VariantFull)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	req := tree.Categories[0].Pipelines[0].Clients[0].Sections[0].Requirements[0]
	if len(req.Signoffs) != 1 || req.Signoffs[0].PersonName != "Alice" {
		t.Errorf("signoffs = %+v, want one from Alice", req.Signoffs)
	}
}

func TestStore_TreeKeepsCellsAsStored(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()
	sheets.Load(domain.TableCategories, sheet.Row{"id", "name", "sortOrder"}, sheet.Row{"cat-1", "Core", "1"})
	sheets.Load(domain.TablePipelines, sheet.Row{"id", "categoryId", "name", "sortOrder"}, sheet.Row{"p-1", "cat-1", "Main", "1"})
	sheets.Load(domain.TableClients, sheet.Row{"id", "pipelineId", "name"},
		sheet.Row{"c-1", "p-1", "Acme"},
		sheet.Row{"c-2", "p-1", "Globex"},
	)
	sheets.Load(domain.TableSections, sheet.Row{"id", "clientId", "name", "sortOrder"}, sheet.Row{"s-1", "c-1", "Security", "1"})
	sheets.Load(domain.TableRequirements,
		sheet.Row{"id", "sectionId", "name", "priority", "status", "sortOrder"},
		sheet.Row{"req-1", "s-1", "Encrypt", float64(2), "pending", "1"},
	)
	sheets.Load(domain.TableTechnologies,
		sheet.Row{"id", "requirementId", "name", "type", "stage", "progress", "links"},
		sheet.Row{"tech-1", "req-1", "Vault", "tool", "pilot", "10", ""},
		sheet.Row{"tech-2", "req-1", "KMS", "cloud", "done", "100", "null"},
	)
	sheets.Load(domain.TableDiagrams, sheet.Row{"id", "clientId", "data"}, sheet.Row{"d-1", "c-1", ""})

	tree, err := s.Tree(ctx, domain.VariantFull)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	data, err := json.Marshal(tree.Roots())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`{"id":"req-1","sectionId":"s-1","name":"Encrypt","priority":2,"status":"pending","sortOrder":1,`,
		`{"id":"tech-1","requirementId":"req-1","name":"Vault","type":"tool","stage":"pilot","progress":10,"links":""}`,
		`{"id":"tech-2","requirementId":"req-1","name":"KMS","type":"cloud","stage":"done","progress":100,"links":null}`,
		`"diagram":{"id":"d-1","clientId":"c-1","data":""}`,
		`{"id":"c-2","pipelineId":"p-1","name":"Globex","data":[],"sections":[],"diagram":null}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %s\n%s", want, out)
		}
	}
	if strings.Contains(out, "subname") {
		t.Errorf("column absent from the header was emitted:\n%s", out)
	}
}

func TestDiagramStore_SaveIsIdempotentPerClient(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()

	if err := s.Diagrams.Save(ctx, "c-1", json.RawMessage(`{ "nodes": [1] }`)); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := s.Diagrams.Save(ctx, "c-1", json.RawMessage(`{"nodes":[1,2]}`)); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	rows := mustRows(t, sheets, domain.TableDiagrams)
	if len(rows) != 2 {
		t.Fatalf("expected exactly one diagram row, got %d", len(rows)-1)
	}
	want := sheet.Row{"diagram-00001", "c-1", `{"nodes":[1,2]}`}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %v, want %v", rows[1], want)
	}
}

func TestDiagramStore_SaveEmptyPayload(t *testing.T) {
	s, sheets := setupTestStore(t)
	ctx := context.Background()

	if err := s.Diagrams.Save(ctx, "c-1", nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	rows := mustRows(t, sheets, domain.TableDiagrams)
	if rows[1][2] != "" {
		t.Errorf("data cell = %q, want blank", rows[1][2])
	}

	if err := s.Diagrams.Save(ctx, "c-1", json.RawMessage(`{broken`)); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestStore_LoadMissingTables(t *testing.T) {
	s := New(memory.New())

	in, err := s.Load(context.Background(), domain.VariantFull)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(in.Categories) != 0 || len(in.Requirements) != 0 {
		t.Errorf("expected empty input, got %+v", in)
	}
}

func TestStore_MutationOnMissingTable(t *testing.T) {
	s := New(memory.New())

	err := s.Requirements.UpdateStatus(context.Background(), "req-1", "done")
	if !errors.Is(err, sheet.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}
