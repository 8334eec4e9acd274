package graph

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateParameters checks a node's parameter map, as submitted, against a JSON
// Schema declared by its registry descriptor. Schema-less node types (the
// common case) are not checked — schemas are opt-in metadata for editor
// validation, not a requirement of every node type.
func ValidateParameters(parameters map[string]interface{}, schemaJSON string) error {
	if schemaJSON == "" {
		return nil
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)

	paramBytes, err := json.Marshal(parameters)
	if err != nil {
		return fmt.Errorf("failed to serialize parameters: %w", err)
	}
	documentLoader := gojsonschema.NewBytesLoader(paramBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("parameter validation failed: %v", msgs)
}
