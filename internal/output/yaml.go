package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FormatYAML writes v as a yaml document
func FormatYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return enc.Close()
}
