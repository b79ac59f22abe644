package render

import (
	"bytes"
	"strings"
	"testing"
)

type item struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Count  int    `json:"count"`
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"", "table", "JSON", "ndjson", "yaml", "tsv"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Format: FormatJSON, Porcelain: true})
	if err := r.RenderJSON([]item{{ID: "a<b", Count: 1}}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != `[{"id":"a<b","count":1}]`+"\n" {
		t.Errorf("got %q", got)
	}
}

func TestRenderYAML_UsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Format: FormatYAML})
	if err := r.RenderYAML([]item{{ID: "r1", Status: "done", Count: 2}, {ID: "123", Count: 0}}); err != nil {
		t.Fatal(err)
	}
	want := `- id: r1
  status: done
  count: 2
- id: "123"
  count: 0
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{})
	headers := []string{"id", "status"}
	rows := [][]string{{"r1", "pending"}, {"r22", "done"}}
	if err := r.Render(nil, nil, headers, rows); err != nil {
		t.Fatal(err)
	}
	want := "id   status\n---  -------\nr1   pending\nr22  done\n"
	if buf.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestRenderTSV_EscapesControlCharacters(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Format: FormatTSV})
	if err := r.Render(nil, nil, []string{"id", "data"}, [][]string{{"d1", "a\tb\nc"}}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 || lines[1] != `d1	a\tb\nc` {
		t.Errorf("unexpected TSV: %q", buf.String())
	}
}

func TestRenderNDJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Format: FormatNDJSON})
	if err := r.Render(nil, []any{item{ID: "a"}, item{ID: "b"}}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "{\"id\":\"a\",\"count\":0}\n{\"id\":\"b\",\"count\":0}\n" {
		t.Errorf("got %q", got)
	}
}
