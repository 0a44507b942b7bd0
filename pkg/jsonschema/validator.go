// Package jsonschema compiles JSON Schemas and validates documents against them.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Schema is a compiled schema that can be reused across documents.
type Schema struct {
	name   string
	schema *jsonschema.Schema
}

// Compile compiles schemaStr under the resource name name.
func Compile(name, schemaStr string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", name, err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", name, err)
	}

	return &Schema{name: name, schema: schema}, nil
}

// MustCompile is like Compile but panics on error. Intended for schemas
// embedded in the binary.
func MustCompile(name, schemaStr string) *Schema {
	s, err := Compile(name, schemaStr)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateJSON validates a JSON string. It returns nil when the document
// is valid.
func (s *Schema) ValidateJSON(jsonStr string) ValidationErrors {
	var doc interface{}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return ValidationErrors{fmt.Errorf("invalid JSON: %w", err)}
	}
	return s.validate(doc)
}

// ValidateDocument validates an in-memory document such as a
// map[string]interface{}. The document is normalised through encoding/json
// first so that Go integer and struct values validate the same way their
// wire form does.
func (s *Schema) ValidateDocument(doc interface{}) ValidationErrors {
	raw, err := json.Marshal(doc)
	if err != nil {
		return ValidationErrors{fmt.Errorf("document is not serialisable: %w", err)}
	}
	return s.ValidateJSON(string(raw))
}

func (s *Schema) validate(doc interface{}) ValidationErrors {
	err := s.schema.Validate(doc)
	if err == nil {
		return nil
	}
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		return extractValidationErrors(validationErr)
	}
	return ValidationErrors{err}
}

// Validate validates a JSON string against a JSON Schema.
// Returns true if the JSON is valid. Errors are returned only for an
// invalid schema or unparsable JSON.
func Validate(jsonStr, schemaStr string) (bool, error) {
	s, err := Compile("schema.json", schemaStr)
	if err != nil {
		return false, err
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return false, fmt.Errorf("invalid JSON: %w", err)
	}

	return s.validate(doc) == nil, nil
}

// extractValidationErrors flattens a jsonschema.ValidationError tree,
// keeping only the leaves that carry a message
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errors ValidationErrors

	if len(err.Causes) == 0 && err.Message != "" {
		errors = append(errors, fmt.Errorf("validation error at %s: %s", locationOf(err), err.Message))
	}

	for _, childErr := range err.Causes {
		errors = append(errors, extractValidationErrors(childErr)...)
	}

	return errors
}

func locationOf(err *jsonschema.ValidationError) string {
	if err.InstanceLocation == "" {
		return "/"
	}
	return err.InstanceLocation
}
