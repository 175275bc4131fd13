package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// curationOutputSchema constrains model-generated curation payloads before
// anything downstream trusts them. IDs are still re-checked against the
// candidate set after schema validation passes.
const curationOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["weekly_pick_ids", "monthly_pick_ids", "reasons_by_id", "summary_text"],
  "additionalProperties": false,
  "properties": {
    "weekly_pick_ids": {
      "type": "array",
      "minItems": 1,
      "maxItems": 10,
      "items": {"type": "string", "minLength": 1}
    },
    "monthly_pick_ids": {
      "type": "array",
      "minItems": 1,
      "maxItems": 20,
      "items": {"type": "string", "minLength": 1}
    },
    "reasons_by_id": {
      "type": "object",
      "additionalProperties": {"type": "string", "minLength": 1, "maxLength": 200}
    },
    "summary_text": {
      "type": "string",
      "minLength": 10,
      "maxLength": 500
    }
  }
}`

// SchemaValidator handles JSON schema validation for untrusted payloads.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaValidator compiles the embedded schemas. Compilation failure is a
// programming error, so it surfaces immediately.
func NewSchemaValidator() (*SchemaValidator, error) {
	sv := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}

	embedded := map[string]string{
		"curation-output": curationOutputSchema,
	}
	for name, raw := range embedded {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		sv.schemas[name] = schema
	}

	return sv, nil
}

// ValidateCurationOutput validates a model-generated curation payload.
func (sv *SchemaValidator) ValidateCurationOutput(data interface{}) *ValidationResult {
	return sv.validate("curation-output", data)
}

func (sv *SchemaValidator) validate(schemaName string, data interface{}) *ValidationResult {
	schema, exists := sv.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Message: fmt.Sprintf("Schema '%s' not found", schemaName),
				Code:    "SCHEMA_NOT_FOUND",
			}},
		}
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := data.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return &ValidationResult{
				Valid: false,
				Errors: []ValidationError{{
					Field:   "data",
					Message: fmt.Sprintf("Failed to marshal data to JSON: %v", err),
					Code:    "JSON_MARSHAL_ERROR",
				}},
			}
		}
		documentLoader = gojsonschema.NewBytesLoader(jsonBytes)
	}

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "validation",
				Message: fmt.Sprintf("Validation error: %v", err),
				Code:    "VALIDATION_ERROR",
			}},
		}
	}

	validationResult := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			validationResult.Errors = append(validationResult.Errors, ValidationError{
				Field:   e.Field(),
				Message: e.Description(),
				Code:    "VALIDATION_ERROR",
				Value:   e.Value(),
				Context: e.Context().String(),
			})
		}
	}

	return validationResult
}

// ValidationResult represents the result of a validation operation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
	Context string      `json:"context,omitempty"`
}

// ErrorSummary joins error messages for logging.
func (vr *ValidationResult) ErrorSummary() string {
	if vr.Valid || len(vr.Errors) == 0 {
		return ""
	}
	summary := ""
	for i, e := range vr.Errors {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return summary
}
