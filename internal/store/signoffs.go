package store

import (
	"context"
	"fmt"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/id"
)

// SignoffStore handles writes to the Signoffs table.
type SignoffStore struct {
	store *Store
}

// Add appends a signoff for the requirement and returns it as written.
func (ss *SignoffStore) Add(ctx context.Context, requirementID, personName string) (*domain.Signoff, error) {
	header, err := ss.store.header(ctx, domain.TableSignoffs)
	if err != nil {
		return nil, err
	}

	signoffID, err := ss.store.ids.New(id.KindSignoff)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signoff id: %w", err)
	}

	signoff := &domain.Signoff{
		ID:            signoffID,
		RequirementID: requirementID,
		PersonName:    personName,
		SignedAt:      domain.FormatSignedAt(ss.store.now()),
	}
	err = ss.store.appendRecord(ctx, domain.TableSignoffs, header, map[string]any{
		"id":            signoff.ID,
		"requirementId": signoff.RequirementID,
		"personName":    signoff.PersonName,
		"signedAt":      signoff.SignedAt,
	})
	if err != nil {
		return nil, err
	}
	return signoff, nil
}

// Remove deletes the first signoff row with the given id. An unknown id is a
// no-op.
func (ss *SignoffStore) Remove(ctx context.Context, signoffID string) error {
	_, idx, err := ss.store.findRow(ctx, domain.TableSignoffs, 0, signoffID)
	if err != nil {
		return err
	}
	if idx < 0 {
		return nil
	}
	if err := ss.store.sheets.DeleteRow(ctx, domain.TableSignoffs, idx); err != nil {
		return fmt.Errorf("failed to delete signoff %s: %w", signoffID, err)
	}
	return nil
}
