package store

import (
	"context"

	"github.com/lherron/pipeboard/internal/domain"
)

// RequirementStore handles writes to the Requirements table.
type RequirementStore struct {
	store *Store
}

// UpdateStatus overwrites the status cell of the requirement with the given
// id. Other cells are untouched; an unknown id is a no-op.
func (rs *RequirementStore) UpdateStatus(ctx context.Context, requirementID, status string) error {
	return rs.store.updateCell(ctx, domain.TableRequirements, requirementID, "status", status)
}
