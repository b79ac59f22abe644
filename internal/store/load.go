package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lherron/pipeboard/internal/assemble"
	"github.com/lherron/pipeboard/internal/decode"
	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/sheet"
)

// Load reads and decodes every table the variant needs. A missing table reads
// as empty.
func (s *Store) Load(ctx context.Context, variant domain.Variant) (assemble.Input, error) {
	var in assemble.Input
	for _, table := range variant.Tables() {
		records, err := s.Records(ctx, table)
		if err != nil {
			return assemble.Input{}, err
		}
		switch table {
		case domain.TableCategories:
			in.Categories = convert(records, domain.CategoryFromRecord)
		case domain.TablePipelines:
			in.Pipelines = convert(records, domain.PipelineFromRecord)
		case domain.TableClients:
			in.Clients = convert(records, domain.ClientFromRecord)
		case domain.TableClientData:
			in.ClientData = convert(records, domain.ClientDataFromRecord)
		case domain.TableSections:
			in.Sections = convert(records, domain.SectionFromRecord)
		case domain.TableRequirements:
			in.Requirements = convert(records, domain.RequirementFromRecord)
		case domain.TableBullets:
			in.Bullets = convert(records, domain.BulletFromRecord)
		case domain.TableTechnologies:
			in.Technologies = convert(records, domain.TechnologyFromRecord)
		case domain.TableSignoffs:
			in.Signoffs = convert(records, domain.SignoffFromRecord)
		case domain.TableDiagrams:
			in.Diagrams = convert(records, domain.DiagramFromRecord)
		}
	}
	return in, nil
}

// Tree loads the tables and assembles the variant's tree.
func (s *Store) Tree(ctx context.Context, variant domain.Variant) (assemble.Tree, error) {
	in, err := s.Load(ctx, variant)
	if err != nil {
		return assemble.Tree{}, err
	}
	return assemble.Build(in, variant), nil
}

// Records decodes one table. A missing table yields no records.
func (s *Store) Records(ctx context.Context, table string) ([]decode.Record, error) {
	rows, err := s.sheets.Rows(ctx, table)
	if errors.Is(err, sheet.ErrTableNotFound) {
		return []decode.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return decode.Rows(rows), nil
}

func convert[T any](records []decode.Record, fn func(decode.Record) T) []T {
	out := make([]T, len(records))
	for i, r := range records {
		out[i] = fn(r)
	}
	return out
}
