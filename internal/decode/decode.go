// Package decode turns a table's raw rows into records, applying the column
// coercion rules shared by every table.
package decode

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/lherron/pipeboard/internal/sheet"
)

// Record is one decoded row keyed by header name.
type Record map[string]any

// jsonColumns hold JSON-encoded text in storage.
var jsonColumns = map[string]bool{
	"links": true,
	"data":  true,
}

// numericColumns are coerced to float64, defaulting to 0.
var numericColumns = map[string]bool{
	"progress":  true,
	"sortOrder": true,
}

// Rows decodes rows (header row first) into records in input order.
//
// A row is dropped when its first cell is falsy, when every assigned value is
// the empty string, or when the decoded "id" field is falsy. The last check
// means a table whose header does not start with "id" loses all rows.
func Rows(rows []sheet.Row) []Record {
	if len(rows) < 2 {
		return []Record{}
	}

	header := sheet.Header(rows)
	records := make([]Record, 0, len(rows)-1)

	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		hasData := false

		for j, name := range header {
			value := row.Cell(j)

			if j == 0 && !Truthy(value) {
				continue
			}

			if jsonColumns[name] {
				if text, ok := value.(string); ok && text != "" {
					value = parseJSON(name, text)
				}
			}

			if numericColumns[name] {
				value = Number(value)
			}

			rec[name] = value
			if text, ok := value.(string); !ok || text != "" {
				hasData = true
			}
		}

		if hasData && Truthy(rec["id"]) {
			records = append(records, rec)
		}
	}

	return records
}

func parseJSON(column, text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		if column == "links" {
			return []any{}
		}
		return nil
	}
	return v
}

// Number coerces a cell to a finite float64. Blank, non-numeric, and
// non-finite input yields 0.
func Number(v any) float64 {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		f = parseNumber(val)
	case []byte:
		f = parseNumber(string(val))
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// ParseFloat accepts spellings like "inf" and "nan"; cell text only
	// counts as numeric when it is a plain decimal.
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if n, ok := parseHex(lower); ok {
			return n
		}
		return 0
	}
	return f
}

func parseHex(s string) (float64, bool) {
	if !strings.HasPrefix(s, "0x") {
		return 0, false
	}
	n, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

// Truthy reports whether v counts as present: nil, "", 0, NaN and false do not.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case json.Number:
		return val != "" && Number(val) != 0
	default:
		return true
	}
}

// String returns a record field as text. Missing fields are "".
func (r Record) String(key string) string {
	return sheet.CellText(r[key])
}

// Number returns a record field coerced to a number.
func (r Record) Number(key string) float64 {
	return Number(r[key])
}

// Value returns a record field as decoded.
func (r Record) Value(key string) any {
	return r[key]
}
