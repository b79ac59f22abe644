package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON produces a deterministic JSON encoding:
// - Object keys sorted lexicographically
// - No insignificant whitespace
// - Rows and cells kept in stored order
func CanonicalJSON(s *Snapshot) ([]byte, error) {
	data, err := marshalCanonical(buildOrderedSnapshot(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// ComputeRev hashes the canonical encoding of s with its rev and generation
// time blanked, so two snapshots of the same contents share a rev.
func ComputeRev(s *Snapshot) (string, error) {
	blank := *s
	blank.Meta.SnapshotRev = ""
	blank.Meta.GeneratedAt = ""
	data, err := CanonicalJSON(&blank)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:]), nil
}

// Seal computes and stores the snapshot_rev, returning the canonical bytes.
func Seal(s *Snapshot) ([]byte, error) {
	rev, err := ComputeRev(s)
	if err != nil {
		return nil, err
	}
	s.Meta.SnapshotRev = rev
	return CanonicalJSON(s)
}

// Verify checks that the stored snapshot_rev matches the contents.
func Verify(s *Snapshot) error {
	if s.Meta.SnapshotRev == "" {
		return fmt.Errorf("snapshot has no snapshot_rev")
	}
	rev, err := ComputeRev(s)
	if err != nil {
		return err
	}
	if rev != s.Meta.SnapshotRev {
		return fmt.Errorf("snapshot_rev mismatch: recorded %s, computed %s", s.Meta.SnapshotRev, rev)
	}
	return nil
}

// orderedMap is a slice of key-value pairs that marshals as a JSON object
// with keys in the order they appear in the slice.
type orderedMap []keyValue

type keyValue struct {
	Key   string
	Value any
}

func (om orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, kv := range om {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyJSON, err := marshalCanonical(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		valJSON, err := marshalCanonical(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalCanonical encodes v without HTML escaping or a trailing newline.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// buildOrderedSnapshot orders the document as meta, tables.
func buildOrderedSnapshot(s *Snapshot) orderedMap {
	return orderedMap{
		{"meta", buildOrderedMeta(&s.Meta)},
		{"tables", buildOrderedTables(s.Tables)},
	}
}

func buildOrderedMeta(m *Meta) orderedMap {
	result := make(orderedMap, 0, 3)

	// Fields in lexicographic order
	if m.GeneratedAt != "" {
		result = append(result, keyValue{"generated_at", m.GeneratedAt})
	}
	result = append(result, keyValue{"schema_version", m.SchemaVersion})
	if m.SnapshotRev != "" {
		result = append(result, keyValue{"snapshot_rev", m.SnapshotRev})
	}

	return result
}

func buildOrderedTables(tables map[string]Table) orderedMap {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(orderedMap, 0, len(tables))
	for _, name := range names {
		t := tables[name]
		header := t.Header
		if header == nil {
			header = []string{}
		}
		rows := t.Rows
		if rows == nil {
			rows = [][]any{}
		}
		result = append(result, keyValue{name, orderedMap{
			{"header", header},
			{"rows", rows},
		}})
	}
	return result
}

// PrettyJSON produces human-readable indented JSON (non-canonical).
func PrettyJSON(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
