package jsonpath

import (
	"testing"
)

const errorDoc = `{
	"code": 403,
	"description": "",
	"errors": [
		{"message": "token expired", "field": "Authorization"},
		{"message": "second"}
	],
	"limit": {"remaining": 0, "window": "15s"},
	"meta": null
}`

func TestExtract(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		expected      string
		expectedError bool
	}{
		{name: "Numeric property", path: "$.code", expected: "403"},
		{name: "Nested property", path: "$.limit.window", expected: "15s"},
		{name: "Array element", path: "$.errors[0].message", expected: "token expired"},
		{name: "Bracket notation", path: "$['limit']['remaining']", expected: "0"},
		{name: "Null value", path: "$.meta", expected: "null"},
		{name: "Missing path", path: "$.nope", expectedError: true},
		{name: "Empty path", path: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(errorDoc, tt.path)
			if tt.expectedError {
				if err == nil {
					t.Errorf("Expected error for path %s, got nil", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestExtract_EmptyJSON(t *testing.T) {
	if _, err := Extract("", "$.a"); err == nil {
		t.Error("Expected error for empty JSON")
	}
}

func TestFirstOf(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		paths    []string
		expected string
		found    bool
	}{
		{"skips empty and missing", errorDoc, []string{"$.description", "$.message", "$.errors[0].message"}, "token expired", true},
		{"first match wins", errorDoc, []string{"$.limit.window", "$.code"}, "15s", true},
		{"skips null", errorDoc, []string{"$.meta"}, "", false},
		{"not json", "<html>busy</html>", []string{"$.message"}, "", false},
		{"empty body", "", []string{"$.message"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstOf(tt.json, tt.paths...)
			if ok != tt.found || got != tt.expected {
				t.Errorf("FirstOf() = (%q, %v), want (%q, %v)", got, ok, tt.expected, tt.found)
			}
		})
	}
}

func TestConvertToGjsonPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"$", "@this"},
		{"$.name", "name"},
		{"$.a.b", "a.b"},
		{"$[0]", "0"},
		{"$.errors[1].message", "errors.1.message"},
		{"$['a']['b']", "a.b"},
		{`$["a"]`, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := convertToGjsonPath(tt.path); got != tt.expected {
				t.Errorf("convertToGjsonPath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}
