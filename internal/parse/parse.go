// Package parse reads batches of dashboard write actions from JSON, NDJSON or
// YAML input.
package parse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Format represents supported input formats
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
)

// Action is one write request body.
type Action struct {
	Name string
	Body json.RawMessage
}

// DetectFormat attempts to determine the format of the input data
// Returns an error if the format cannot be reliably determined
func DetectFormat(data []byte) (Format, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", fmt.Errorf("empty input")
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return FormatJSON, nil
		}
		if validLines(trimmed) {
			return FormatNDJSON, nil
		}
		return "", fmt.Errorf("input appears to be JSON but is invalid")
	}

	// YAML accepts plain text too; only a mapping or sequence counts
	var probe interface{}
	if err := yaml.Unmarshal(data, &probe); err == nil {
		switch probe.(type) {
		case map[string]interface{}, []interface{}:
			return FormatYAML, nil
		}
	}
	return "", fmt.Errorf("unrecognized input format: expected JSON, NDJSON or YAML")
}

func validLines(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !json.Valid([]byte(line)) {
			return false
		}
	}
	return true
}

// ParseJSON parses a single action object or an array of them
func ParseJSON(data []byte) ([]Action, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if doc.IsObject() {
		action, err := newAction(1, json.RawMessage(doc.Raw))
		if err != nil {
			return nil, err
		}
		return []Action{action}, nil
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("expected an action object or an array of actions")
	}

	var actions []Action
	for i, item := range doc.Array() {
		action, err := newAction(i+1, json.RawMessage(item.Raw))
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// ParseNDJSON parses one action object per line. Blank lines are skipped.
func ParseNDJSON(data []byte) ([]Action, error) {
	var actions []Action
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 10<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		if !json.Valid(text) {
			return nil, fmt.Errorf("line %d: invalid JSON", line)
		}
		action, err := newAction(line, append(json.RawMessage(nil), text...))
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return actions, nil
}

// ParseYAML parses a single action mapping or a sequence of them
func ParseYAML(data []byte) ([]Action, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	var items []interface{}
	switch v := doc.(type) {
	case map[string]interface{}:
		items = []interface{}{v}
	case []interface{}:
		items = v
	default:
		return nil, fmt.Errorf("expected an action mapping or a sequence of actions")
	}

	actions := make([]Action, 0, len(items))
	for i, item := range items {
		body, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		action, err := newAction(i+1, body)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// Parse parses actions in the specified format
// If format is empty, auto-detects the format
func Parse(data []byte, format string) ([]Action, error) {
	detected := Format(format)
	if format == "" {
		var err error
		detected, err = DetectFormat(data)
		if err != nil {
			return nil, err
		}
	}

	switch detected {
	case FormatJSON:
		return ParseJSON(data)
	case FormatNDJSON, "jsonl":
		return ParseNDJSON(data)
	case FormatYAML, "yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func newAction(item int, body json.RawMessage) (Action, error) {
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return Action{}, fmt.Errorf("item %d: expected an object", item)
	}
	name := doc.Get("action")
	if name.Type != gjson.String || name.String() == "" {
		return Action{}, fmt.Errorf("item %d: missing action", item)
	}
	return Action{Name: name.String(), Body: body}, nil
}
