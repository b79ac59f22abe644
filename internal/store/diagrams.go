package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/id"
	"github.com/lherron/pipeboard/internal/sheet"
)

// DiagramStore handles writes to the Diagrams table.
type DiagramStore struct {
	store *Store
}

// Save stores payload as the client's diagram. The first row for the client is
// overwritten in place; without one a new row is appended. An empty payload is
// stored as a blank cell.
func (ds *DiagramStore) Save(ctx context.Context, clientID string, payload json.RawMessage) error {
	text, err := compactJSON(payload)
	if err != nil {
		return fmt.Errorf("invalid diagram payload: %w", err)
	}

	rows, err := ds.store.sheets.Rows(ctx, domain.TableDiagrams)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", domain.TableDiagrams, err)
	}
	header := sheet.Header(rows)
	clientCol := sheet.IndexOf(header, "clientId")
	dataCol := sheet.IndexOf(header, "data")
	if clientCol < 0 {
		return fmt.Errorf("%w: %s.clientId", ErrColumnNotFound, domain.TableDiagrams)
	}
	if dataCol < 0 {
		return fmt.Errorf("%w: %s.data", ErrColumnNotFound, domain.TableDiagrams)
	}

	for i := 1; i < len(rows); i++ {
		if cellEquals(rows[i].Cell(clientCol), clientID) {
			if err := ds.store.sheets.SetCell(ctx, domain.TableDiagrams, i, dataCol, text); err != nil {
				return fmt.Errorf("failed to update diagram for %s: %w", clientID, err)
			}
			return nil
		}
	}

	diagramID, err := ds.store.ids.New(id.KindDiagram)
	if err != nil {
		return fmt.Errorf("failed to generate diagram id: %w", err)
	}
	return ds.store.appendRecord(ctx, domain.TableDiagrams, header, map[string]any{
		"id":       diagramID,
		"clientId": clientID,
		"data":     text,
	})
}

func compactJSON(payload json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}
