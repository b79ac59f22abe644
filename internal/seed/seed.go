// Package seed holds a small sample dataset covering every table.
package seed

import (
	"context"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/sheet"
	"github.com/lherron/pipeboard/internal/snapshot"
	"github.com/lherron/pipeboard/internal/store"
)

var rows = map[string][][]any{
	domain.TableCategories: {
		{"cat-1", "Implementation", "1"},
		{"cat-2", "Discovery", "2"},
	},
	domain.TablePipelines: {
		{"pipe-1", "cat-1", "Enterprise", "1"},
		{"pipe-2", "cat-2", "Pilot", "1"},
	},
	domain.TableClients: {
		{"client-1", "pipe-1", "Acme Corp"},
		{"client-2", "pipe-2", "Globex"},
	},
	domain.TableClientData: {
		{"cd-1", "client-1", "Signed MSA"},
		{"cd-2", "client-1", "Kickoff scheduled"},
	},
	domain.TableSections: {
		{"sec-2", "client-1", "Integrations", "2"},
		{"sec-1", "client-1", "Security", "1"},
		{"sec-3", "client-2", "Scoping", "1"},
	},
	domain.TableRequirements: {
		{"req-1", "sec-1", "SSO", "SAML 2.0", "high", "in-progress", "1"},
		{"req-2", "sec-1", "Audit logging", "", "medium", "pending", "2"},
		{"req-3", "sec-2", "CRM sync", "Salesforce", "high", "pending", "1"},
		{"req-4", "sec-3", "Requirements workshop", "", "low", "done", "1"},
	},
	domain.TableBullets: {
		{"b-2", "req-1", "Test IdP metadata exchanged", "2"},
		{"b-1", "req-1", "Okta tenant provisioned", "1"},
		{"b-3", "req-3", "API credentials requested", "1"},
	},
	domain.TableTechnologies: {
		{"tech-1", "req-1", "Okta", "idp", "testing", "60", `[{"label":"Docs","url":"https://developer.okta.com"}]`},
		{"tech-2", "req-3", "Salesforce", "crm", "planning", "10", ""},
	},
	domain.TableSignoffs: {
		{"signoff-00001", "req-4", "Dana Scully", "2025-01-15T09:30:00.000Z"},
	},
	domain.TableDiagrams: {
		{"diagram-00001", "client-1", `{"nodes":[{"id":"n1","label":"Okta"},{"id":"n2","label":"Acme"}],"edges":[{"from":"n1","to":"n2"}]}`},
	},
}

// Snapshot returns the sample dataset as a snapshot, one table per entity.
func Snapshot() *snapshot.Snapshot {
	snap := &snapshot.Snapshot{
		Meta:   snapshot.Meta{SchemaVersion: snapshot.SchemaVersion},
		Tables: make(map[string]snapshot.Table, len(rows)),
	}
	for table, data := range rows {
		copied := make([][]any, len(data))
		for i, row := range data {
			copied[i] = append([]any(nil), row...)
		}
		snap.Tables[table] = snapshot.Table{
			Header: append([]string(nil), domain.Columns[table]...),
			Rows:   copied,
		}
	}
	return snap
}

// Load writes the sample dataset into sheets, creating missing tables.
// With replace set, existing data rows are removed first.
func Load(ctx context.Context, sheets sheet.Store, replace bool) (*snapshot.ImportResult, error) {
	if _, err := store.EnsureTables(ctx, sheets); err != nil {
		return nil, err
	}
	return snapshot.Import(ctx, sheets, Snapshot(), snapshot.ImportOptions{Replace: replace})
}
