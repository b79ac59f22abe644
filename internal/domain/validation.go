package domain

import (
	"fmt"
	"time"
)

// FormatSignedAt renders t the way signoff timestamps are stored.
func FormatSignedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseVariant validates a variant name. Empty selects the full variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantFull:
		return VariantFull, nil
	case VariantReduced:
		return VariantReduced, nil
	default:
		return "", fmt.Errorf("invalid variant %q: must be one of: full, reduced", s)
	}
}

// ValidateTable checks that name is a known table.
func ValidateTable(name string) error {
	if _, ok := Columns[name]; !ok {
		return fmt.Errorf("unknown table %q", name)
	}
	return nil
}
