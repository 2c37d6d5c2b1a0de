package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaped-ai/playground/pkg/core"
	"gopkg.in/yaml.v3"
)

// SnapshotFormat is a file format for exported workspaces.
type SnapshotFormat string

// Snapshot formats.
const (
	FormatJSON SnapshotFormat = "json"
	FormatYAML SnapshotFormat = "yaml"
)

// ParseSnapshotFormat accepts json, yaml or yml.
func ParseSnapshotFormat(s string) (SnapshotFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q (want json or yaml)", s)
	}
}

// FormatForPath guesses the format from a file extension, defaulting to JSON.
func FormatForPath(path string) SnapshotFormat {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// MarshalSnapshot renders state for export. The YAML form uses the same
// field names as the JSON record.
func MarshalSnapshot(state *core.QueryPageState, format SnapshotFormat) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}
	if format == FormatJSON {
		return buf.Bytes(), nil
	}

	var generic any
	if err := json.Unmarshal(buf.Bytes(), &generic); err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workspace as yaml: %w", err)
	}
	return out, nil
}

// UnmarshalSnapshot parses and validates an exported workspace.
func UnmarshalSnapshot(data []byte, format SnapshotFormat) (*core.QueryPageState, error) {
	if format == FormatYAML {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse yaml workspace: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("failed to parse yaml workspace: %w", err)
		}
		data = converted
	}

	var state core.QueryPageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}
	return &state, nil
}
