package store

import (
	"context"

	"github.com/lherron/pipeboard/internal/domain"
)

// TechnologyStore handles writes to the Technologies table.
type TechnologyStore struct {
	store *Store
}

// UpdateProgress overwrites the progress cell of the technology with the
// given id. The value is stored as given and coerced to a number on read.
func (ts *TechnologyStore) UpdateProgress(ctx context.Context, technologyID string, progress any) error {
	return ts.store.updateCell(ctx, domain.TableTechnologies, technologyID, "progress", progress)
}
