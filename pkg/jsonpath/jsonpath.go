// Package jsonpath extracts values from JSON documents with a small subset
// of JSONPath, backed by gjson.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract extracts a value from a JSON string using a JSONPath expression
func Extract(json string, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}

	// JSONPath: $.errors[0].message
	// gjson:    errors.0.message
	result := gjson.Get(json, convertToGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("path not found: %s", path)
	}

	if result.Type == gjson.Null {
		return "null", nil
	}

	return result.String(), nil
}

// FirstOf returns the first non-empty string found at any of paths. The
// second return value is false when the document is not valid JSON or none
// of the paths resolve.
func FirstOf(json string, paths ...string) (string, bool) {
	if json == "" || !gjson.Valid(json) {
		return "", false
	}
	for _, p := range paths {
		v, err := Extract(json, p)
		if err != nil || v == "" || v == "null" {
			continue
		}
		return v, true
	}
	return "", false
}

// convertToGjsonPath converts a JSONPath expression to a gjson path format
func convertToGjsonPath(path string) string {
	if path == "$" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}
	path = strings.TrimPrefix(path, ".")

	// $['name'] and $["name"]
	path = strings.NewReplacer("['", ".", "']", "", `["`, ".", `"]`, "").Replace(path)
	path = strings.TrimPrefix(path, ".")

	// $[0] -> 0, a[1].b -> a.1.b
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	return strings.TrimPrefix(path, ".")
}
