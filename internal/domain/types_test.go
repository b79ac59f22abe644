package domain

import (
	"encoding/json"
	"testing"

	"github.com/lherron/pipeboard/internal/decode"
)

func TestRequirement_SignoffsOmittedWhenNil(t *testing.T) {
	tests := []struct {
		name string
		req  Requirement
		want string
	}{
		{
			name: "reduced variant",
			req:  Requirement{ID: "r1", Bullets: []Bullet{}, Technologies: []Technology{}},
			want: `{"id":"r1","sectionId":"","name":"","subname":"","priority":"","status":"","sortOrder":0,"bullets":[],"technologies":[]}`,
		},
		{
			name: "full variant without signoffs",
			req:  Requirement{ID: "r1", Bullets: []Bullet{}, Technologies: []Technology{}, Signoffs: []Signoff{}},
			want: `{"id":"r1","sectionId":"","name":"","subname":"","priority":"","status":"","sortOrder":0,"bullets":[],"technologies":[],"signoffs":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClient_DiagramField(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{
			name:   "absent slot",
			client: Client{ID: "c1", Data: []ClientData{}, Sections: []Section{}},
			want:   `{"id":"c1","pipelineId":"","name":"","data":[],"sections":[]}`,
		},
		{
			name:   "present but empty",
			client: Client{ID: "c1", Data: []ClientData{}, Sections: []Section{}, Diagram: DiagramField{Present: true}},
			want:   `{"id":"c1","pipelineId":"","name":"","data":[],"sections":[],"diagram":null}`,
		},
		{
			name: "present with value",
			client: Client{
				ID:       "c1",
				Data:     []ClientData{},
				Sections: []Section{},
				Diagram:  DiagramField{Present: true, Value: &Diagram{ID: "d1", ClientID: "c1", Data: map[string]any{"n": 1.0}}},
			},
			want: `{"id":"c1","pipelineId":"","name":"","data":[],"sections":[],"diagram":{"id":"d1","clientId":"c1","data":{"n":1}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.client)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecordFieldsPassThrough(t *testing.T) {
	rec := decode.Record{
		"id":        "r1",
		"sectionId": "s1",
		"name":      "Encrypt",
		"priority":  2.0,
		"status":    "",
		"sortOrder": 1.0,
		"owner":     "ops",
		"data":      "kept",
		"bullets":   "shadowed",
	}

	r := RequirementFromRecord(rec)
	r.Bullets = []Bullet{}
	r.Technologies = []Technology{}

	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// No subname column, so no subname field.
	want := `{"id":"r1","sectionId":"s1","name":"Encrypt","priority":2,"status":"","sortOrder":1,"data":"kept","owner":"ops","bullets":[],"technologies":[]}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestRecordFieldsPassThrough_UnsetChildren(t *testing.T) {
	// Reduced variant: no signoffs are attached, so a stored column survives.
	r := RequirementFromRecord(decode.Record{"id": "r1", "signoffs": "none yet"})
	r.Bullets = []Bullet{}
	r.Technologies = []Technology{}

	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"id":"r1","signoffs":"none yet","bullets":[],"technologies":[]}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestPipelineFromRecord_EmptyCategoryKept(t *testing.T) {
	p := PipelineFromRecord(decode.Record{"id": "p1", "categoryId": "", "name": "Main", "sortOrder": 0.0})
	p.Clients = []Client{}

	got, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"id":"p1","categoryId":"","name":"Main","sortOrder":0,"clients":[]}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestTechnologyFromRecord_Links(t *testing.T) {
	tests := []struct {
		name  string
		links any
		want  string
	}{
		{name: "empty cell", links: "", want: `""`},
		{name: "null", links: nil, want: `null`},
		{name: "decoded list", links: []any{"a"}, want: `["a"]`},
		{name: "decoded object", links: map[string]any{"k": "v"}, want: `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := decode.Record{"id": "t1", "progress": 40.0, "links": tt.links}
			tech := TechnologyFromRecord(rec)
			got, err := json.Marshal(tech)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			want := `{"id":"t1","progress":40,"links":` + tt.want + `}`
			if string(got) != want {
				t.Errorf("Marshal() = %s, want %s", got, want)
			}
			if tech.Progress != 40 {
				t.Errorf("Progress = %v, want 40", tech.Progress)
			}
		})
	}
}

func TestDiagramFromRecord_DataAsStored(t *testing.T) {
	d := DiagramFromRecord(decode.Record{"id": "d1", "clientId": "c1", "data": ""})
	got, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := `{"id":"d1","clientId":"c1","data":""}`; string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}

	d = DiagramFromRecord(decode.Record{"id": "d1", "clientId": "c1", "data": []any{1.0}})
	if _, ok := d.Data.([]any); !ok {
		t.Errorf("Data = %T, want []any", d.Data)
	}
}

func TestVariant_Tables(t *testing.T) {
	full := VariantFull.Tables()
	if len(full) != len(Columns) {
		t.Errorf("full variant reads %d tables, want %d", len(full), len(Columns))
	}
	for _, name := range VariantReduced.Tables() {
		switch name {
		case TableCategories, TableSignoffs, TableDiagrams:
			t.Errorf("reduced variant must not read %s", name)
		}
	}
}

func TestAllTables_Sorted(t *testing.T) {
	names := AllTables()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("AllTables not sorted: %v", names)
		}
	}
}
