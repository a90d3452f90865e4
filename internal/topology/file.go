package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the encoding from a file extension. Anything other
// than .json is treated as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a document. Unknown fields are rejected so that typos in
// hand-written circuits surface as errors instead of silently vanishing.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decoding JSON: %v", ErrInvalidTopology, err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decoding YAML: %v", ErrInvalidTopology, err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q (use 'yaml' or 'json')", format)
	}
	return &doc, nil
}

// Marshal encodes a document.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use 'yaml' or 'json')", format)
	}
}

// LoadFile reads and decodes a document, choosing the format by extension.
// The document is not validated; pass it to Build or Validate.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading circuit file: %w", err)
	}
	doc, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// SaveFile encodes doc and writes it to path, choosing the format by extension.
func SaveFile(path string, doc *Document) error {
	data, err := Marshal(doc, FormatForPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing circuit file: %w", err)
	}
	return nil
}
