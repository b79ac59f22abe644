package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lherron/pipeboard/internal/decode"
)

// Table names as addressed in the row store.
const (
	TableCategories   = "Categories"
	TablePipelines    = "Pipelines"
	TableClients      = "Clients"
	TableClientData   = "ClientData"
	TableSections     = "Sections"
	TableRequirements = "Requirements"
	TableBullets      = "Bullets"
	TableTechnologies = "Technologies"
	TableSignoffs     = "Signoffs"
	TableDiagrams     = "Diagrams"
)

// Columns lists each table's columns in their documented order.
var Columns = map[string][]string{
	TableCategories:   {"id", "name", "sortOrder"},
	TablePipelines:    {"id", "categoryId", "name", "sortOrder"},
	TableClients:      {"id", "pipelineId", "name"},
	TableClientData:   {"id", "clientId", "item"},
	TableSections:     {"id", "clientId", "name", "sortOrder"},
	TableRequirements: {"id", "sectionId", "name", "subname", "priority", "status", "sortOrder"},
	TableBullets:      {"id", "requirementId", "text", "sortOrder"},
	TableTechnologies: {"id", "requirementId", "name", "type", "stage", "progress", "links"},
	TableSignoffs:     {"id", "requirementId", "personName", "signedAt"},
	TableDiagrams:     {"id", "clientId", "data"},
}

// Variant selects which entities and fields the dashboard exposes.
type Variant string

const (
	// VariantFull nests pipelines under categories and carries signoffs and
	// diagrams.
	VariantFull Variant = "full"
	// VariantReduced starts the tree at pipelines and has no categories,
	// signoffs or diagrams.
	VariantReduced Variant = "reduced"
)

// Tables returns the tables read by the variant, parents first.
func (v Variant) Tables() []string {
	if v == VariantReduced {
		return []string{
			TablePipelines, TableClients, TableClientData, TableSections,
			TableRequirements, TableBullets, TableTechnologies,
		}
	}
	return []string{
		TableCategories, TablePipelines, TableClients, TableClientData, TableSections,
		TableRequirements, TableBullets, TableTechnologies, TableSignoffs, TableDiagrams,
	}
}

// AllTables returns every known table name in lexical order.
func AllTables() []string {
	names := make([]string, 0, len(Columns))
	for name := range Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Category is the root of the full-variant tree.
type Category struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	SortOrder float64       `json:"sortOrder"`
	Pipelines []Pipeline    `json:"pipelines"`
	Fields    decode.Record `json:"-"`
}

// Pipeline groups clients. CategoryID is empty in the reduced variant.
type Pipeline struct {
	ID         string        `json:"id"`
	CategoryID string        `json:"categoryId,omitempty"`
	Name       string        `json:"name"`
	SortOrder  float64       `json:"sortOrder"`
	Clients    []Client      `json:"clients"`
	Fields     decode.Record `json:"-"`
}

// Client carries its data items, sections and (full variant) diagram.
type Client struct {
	ID         string        `json:"id"`
	PipelineID string        `json:"pipelineId"`
	Name       string        `json:"name"`
	Data       []ClientData  `json:"data"`
	Sections   []Section     `json:"sections"`
	Diagram    DiagramField  `json:"diagram,omitzero"`
	Fields     decode.Record `json:"-"`
}

// ClientData is a free-form item listed under a client.
type ClientData struct {
	ID       string        `json:"id"`
	ClientID string        `json:"clientId"`
	Item     string        `json:"item"`
	Fields   decode.Record `json:"-"`
}

// Section groups requirements within a client.
type Section struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"clientId"`
	Name         string        `json:"name"`
	SortOrder    float64       `json:"sortOrder"`
	Requirements []Requirement `json:"requirements"`
	Fields       decode.Record `json:"-"`
}

// Requirement is a checklist item. Signoffs stays nil in the reduced variant
// and is then left out of the JSON.
type Requirement struct {
	ID           string        `json:"id"`
	SectionID    string        `json:"sectionId"`
	Name         string        `json:"name"`
	Subname      string        `json:"subname"`
	Priority     string        `json:"priority"`
	Status       string        `json:"status"`
	SortOrder    float64       `json:"sortOrder"`
	Bullets      []Bullet      `json:"bullets"`
	Technologies []Technology  `json:"technologies"`
	Signoffs     []Signoff     `json:"signoffs,omitzero"`
	Fields       decode.Record `json:"-"`
}

// Bullet is a line of text under a requirement.
type Bullet struct {
	ID            string        `json:"id"`
	RequirementID string        `json:"requirementId"`
	Text          string        `json:"text"`
	SortOrder     float64       `json:"sortOrder"`
	Fields        decode.Record `json:"-"`
}

// Technology tracks adoption progress for a requirement. Links holds the
// links cell as decoded.
type Technology struct {
	ID            string        `json:"id"`
	RequirementID string        `json:"requirementId"`
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	Stage         string        `json:"stage"`
	Progress      float64       `json:"progress"`
	Links         any           `json:"links"`
	Fields        decode.Record `json:"-"`
}

// Signoff records a person approving a requirement.
type Signoff struct {
	ID            string        `json:"id"`
	RequirementID string        `json:"requirementId"`
	PersonName    string        `json:"personName"`
	SignedAt      string        `json:"signedAt"`
	Fields        decode.Record `json:"-"`
}

// Diagram is the saved diagram document for a client.
type Diagram struct {
	ID       string        `json:"id"`
	ClientID string        `json:"clientId"`
	Data     any           `json:"data"`
	Fields   decode.Record `json:"-"`
}

// DiagramField is a client's diagram slot. In the full variant it is present
// and encodes as null when the client has no diagram; in the reduced variant
// it is absent.
type DiagramField struct {
	Present bool
	Value   *Diagram
}

// IsZero reports whether the slot should be omitted.
func (f DiagramField) IsZero() bool {
	return !f.Present
}

func (f DiagramField) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (c Category) MarshalJSON() ([]byte, error) {
	type plain Category
	return marshalNode(TableCategories, plain(c), c.Fields,
		child{"pipelines", c.Pipelines, true})
}

func (p Pipeline) MarshalJSON() ([]byte, error) {
	type plain Pipeline
	return marshalNode(TablePipelines, plain(p), p.Fields,
		child{"clients", p.Clients, true})
}

func (c Client) MarshalJSON() ([]byte, error) {
	type plain Client
	return marshalNode(TableClients, plain(c), c.Fields,
		child{"data", c.Data, true},
		child{"sections", c.Sections, true},
		child{"diagram", c.Diagram, c.Diagram.Present})
}

func (d ClientData) MarshalJSON() ([]byte, error) {
	type plain ClientData
	return marshalNode(TableClientData, plain(d), d.Fields)
}

func (s Section) MarshalJSON() ([]byte, error) {
	type plain Section
	return marshalNode(TableSections, plain(s), s.Fields,
		child{"requirements", s.Requirements, true})
}

func (r Requirement) MarshalJSON() ([]byte, error) {
	type plain Requirement
	return marshalNode(TableRequirements, plain(r), r.Fields,
		child{"bullets", r.Bullets, true},
		child{"technologies", r.Technologies, true},
		child{"signoffs", r.Signoffs, r.Signoffs != nil})
}

func (b Bullet) MarshalJSON() ([]byte, error) {
	type plain Bullet
	return marshalNode(TableBullets, plain(b), b.Fields)
}

func (t Technology) MarshalJSON() ([]byte, error) {
	type plain Technology
	return marshalNode(TableTechnologies, plain(t), t.Fields)
}

func (s Signoff) MarshalJSON() ([]byte, error) {
	type plain Signoff
	return marshalNode(TableSignoffs, plain(s), s.Fields)
}

func (d Diagram) MarshalJSON() ([]byte, error) {
	type plain Diagram
	return marshalNode(TableDiagrams, plain(d), d.Fields)
}

// child is a nested collection attached by the assembler. A set child replaces
// any stored field of the same name.
type child struct {
	name  string
	value any
	set   bool
}

// marshalNode encodes a node. A node built in code encodes its typed fields.
// A node read from a table encodes its decoded record as stored: the table's
// columns in documented order, then any other columns sorted by name, then
// the set children.
func marshalNode(table string, typed any, fields decode.Record, children ...child) ([]byte, error) {
	if fields == nil {
		return json.Marshal(typed)
	}

	shadowed := make(map[string]bool, len(children))
	for _, c := range children {
		if c.set {
			shadowed[c.name] = true
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	columns := Columns[table]
	isColumn := make(map[string]bool, len(columns))
	for _, name := range columns {
		isColumn[name] = true
		if value, ok := fields[name]; ok && !shadowed[name] {
			if err := write(name, value); err != nil {
				return nil, err
			}
		}
	}

	var rest []string
	for name := range fields {
		if !isColumn[name] && !shadowed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if err := write(name, fields[name]); err != nil {
			return nil, err
		}
	}

	for _, c := range children {
		if !c.set {
			continue
		}
		if err := write(c.name, c.value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
