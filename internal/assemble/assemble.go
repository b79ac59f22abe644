// Package assemble nests the flat entity tables into the dashboard tree.
//
// Children are attached bottom-up: requirements receive bullets, technologies
// and signoffs; sections receive requirements; clients receive data items,
// sections and a diagram; pipelines receive clients; categories receive
// pipelines. Sibling order is ascending sortOrder with ties kept in table
// order. Foreign keys that match nothing simply produce empty collections.
package assemble

import (
	"sort"

	"github.com/lherron/pipeboard/internal/domain"
)

// Input holds every table's entities in table order. Categories, Signoffs
// and Diagrams are ignored by the reduced variant.
type Input struct {
	Categories   []domain.Category
	Pipelines    []domain.Pipeline
	Clients      []domain.Client
	ClientData   []domain.ClientData
	Sections     []domain.Section
	Requirements []domain.Requirement
	Bullets      []domain.Bullet
	Technologies []domain.Technology
	Signoffs     []domain.Signoff
	Diagrams     []domain.Diagram
}

// Tree is the assembled result. Exactly one of Categories (full variant) or
// Pipelines (reduced variant) is set.
type Tree struct {
	Variant    domain.Variant
	Categories []domain.Category
	Pipelines  []domain.Pipeline
}

// Roots returns the top level of the tree as it is sent to clients.
func (t Tree) Roots() any {
	if t.Variant == domain.VariantReduced {
		return t.Pipelines
	}
	return t.Categories
}

// Build assembles the tree for the given variant. The input slices are not
// modified.
func Build(in Input, variant domain.Variant) Tree {
	full := variant != domain.VariantReduced

	bullets := groupBy(sortedBySortOrder(in.Bullets, func(b domain.Bullet) float64 { return b.SortOrder }),
		func(b domain.Bullet) string { return b.RequirementID })
	technologies := groupBy(in.Technologies, func(t domain.Technology) string { return t.RequirementID })
	var signoffs map[string][]domain.Signoff
	if full {
		signoffs = groupBy(in.Signoffs, func(s domain.Signoff) string { return s.RequirementID })
	}

	requirements := sortedBySortOrder(in.Requirements, func(r domain.Requirement) float64 { return r.SortOrder })
	for i := range requirements {
		r := &requirements[i]
		r.Bullets = orEmpty(bullets[r.ID])
		r.Technologies = orEmpty(technologies[r.ID])
		if full {
			r.Signoffs = orEmpty(signoffs[r.ID])
		} else {
			r.Signoffs = nil
		}
	}
	reqsBySection := groupBy(requirements, func(r domain.Requirement) string { return r.SectionID })

	sections := sortedBySortOrder(in.Sections, func(s domain.Section) float64 { return s.SortOrder })
	for i := range sections {
		s := &sections[i]
		s.Requirements = orEmpty(reqsBySection[s.ID])
	}
	sectionsByClient := groupBy(sections, func(s domain.Section) string { return s.ClientID })

	dataByClient := groupBy(in.ClientData, func(d domain.ClientData) string { return d.ClientID })
	var diagramByClient map[string]*domain.Diagram
	if full {
		diagramByClient = firstBy(in.Diagrams, func(d domain.Diagram) string { return d.ClientID })
	}

	clients := append([]domain.Client(nil), in.Clients...)
	for i := range clients {
		c := &clients[i]
		c.Data = orEmpty(dataByClient[c.ID])
		c.Sections = orEmpty(sectionsByClient[c.ID])
		if full {
			c.Diagram = domain.DiagramField{Present: true, Value: diagramByClient[c.ID]}
		} else {
			c.Diagram = domain.DiagramField{}
		}
	}
	clientsByPipeline := groupBy(clients, func(c domain.Client) string { return c.PipelineID })

	pipelines := sortedBySortOrder(in.Pipelines, func(p domain.Pipeline) float64 { return p.SortOrder })
	for i := range pipelines {
		p := &pipelines[i]
		p.Clients = orEmpty(clientsByPipeline[p.ID])
	}

	if !full {
		return Tree{Variant: domain.VariantReduced, Pipelines: orEmpty(pipelines)}
	}

	pipelinesByCategory := groupBy(pipelines, func(p domain.Pipeline) string { return p.CategoryID })
	categories := sortedBySortOrder(in.Categories, func(c domain.Category) float64 { return c.SortOrder })
	for i := range categories {
		c := &categories[i]
		c.Pipelines = orEmpty(pipelinesByCategory[c.ID])
	}
	return Tree{Variant: domain.VariantFull, Categories: orEmpty(categories)}
}

// sortedBySortOrder returns a stably sorted copy of items.
func sortedBySortOrder[T any](items []T, key func(T) float64) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) < key(out[j])
	})
	return out
}

// groupBy indexes items by parent id, keeping their relative order.
func groupBy[T any](items []T, parent func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, item := range items {
		id := parent(item)
		out[id] = append(out[id], item)
	}
	return out
}

// firstBy indexes the first item per parent id.
func firstBy[T any](items []T, parent func(T) string) map[string]*T {
	out := make(map[string]*T)
	for i := range items {
		id := parent(items[i])
		if _, ok := out[id]; !ok {
			item := items[i]
			out[id] = &item
		}
	}
	return out
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
