package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between two snapshots, one line per row.
// Identical table contents yield an empty string.
func Diff(a, b *Snapshot, nameA, nameB string) (string, error) {
	linesA, err := snapshotLines(a)
	if err != nil {
		return "", err
	}
	linesB, err := snapshotLines(b)
	if err != nil {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        linesA,
		B:        linesB,
		FromFile: nameA,
		ToFile:   nameB,
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff snapshots: %w", err)
	}
	return text, nil
}

func snapshotLines(s *Snapshot) ([]string, error) {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		t := s.Tables[name]
		lines = append(lines, "## "+name+"\n", strings.Join(t.Header, "\t")+"\n")
		for _, row := range t.Rows {
			data, err := marshalCanonical(row)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s row: %w", name, err)
			}
			lines = append(lines, string(data)+"\n")
		}
	}
	return lines, nil
}
