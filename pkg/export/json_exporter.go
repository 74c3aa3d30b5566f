package export

import (
	"encoding/json"
	"fmt"
)

// JSONExporter renders arbitrary payloads as pretty-printed JSON.
type JSONExporter struct{}

// NewJSONExporter builds a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Render produces indented JSON bytes for the payload.
func (e *JSONExporter) Render(payload interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json export: %w", err)
	}
	return data, nil
}
