package output

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// YAMLFormatter formats data as YAML.
//
// Structs go through their JSON form first so that YAML keys match the
// json tags instead of lowercased field names.
type YAMLFormatter struct{}

// Format implements Formatter.
func (YAMLFormatter) Format(w io.Writer, data any) error {
	var doc any = data
	switch data.(type) {
	case map[string]any, []any, string, nil:
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return enc.Close()
}
