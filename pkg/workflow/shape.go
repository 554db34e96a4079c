package workflow

import (
	"encoding/json"
	"fmt"
)

// Kind describes the expected JSON type of a shape field.
type Kind int

const (
	KindString Kind = iota
	KindStringList
)

// Field is one entry of a Shape.
type Field struct {
	Name        string
	Kind        Kind
	Description string
}

// Shape is an explicit descriptor for a structured LLM response. It renders
// the response-format block appended to prompts and validates the decoded
// object against the same definition, so prompt and check cannot drift.
type Shape struct {
	Fields []Field
}

// PromptBlock renders the shape as the JSON schema instruction fed to the
// model alongside the system prompt.
func (s Shape) PromptBlock() string {
	properties := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))

	for _, f := range s.Fields {
		prop := map[string]any{}
		switch f.Kind {
		case KindStringList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		default:
			prop["type"] = "string"
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
		required = append(required, f.Name)
	}

	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	})

	return "Return the JSON object directly without any formatting or additional text. " +
		"Make sure to answer in valid json and include all required properties: " + string(schema)
}

// Validate checks a decoded JSON object against the shape. Validation is
// idempotent: a conforming object always passes. Extra fields are ignored.
func (s Shape) Validate(obj map[string]any) error {
	for _, f := range s.Fields {
		v, ok := obj[f.Name]
		if !ok {
			return &SchemaValidationError{Field: f.Name, Reason: "missing"}
		}
		switch f.Kind {
		case KindString:
			if _, ok := v.(string); !ok {
				return &SchemaValidationError{Field: f.Name, Reason: fmt.Sprintf("expected string, got %T", v)}
			}
		case KindStringList:
			if _, err := stringList(v); err != nil {
				return &SchemaValidationError{Field: f.Name, Reason: err.Error()}
			}
		}
	}
	return nil
}

// stringList coerces a decoded JSON value into a []string.
func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array of strings, got %T", v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string at index %d, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringField(obj map[string]any, name string) string {
	s, _ := obj[name].(string)
	return s
}

func stringListField(obj map[string]any, name string) []string {
	list, err := stringList(obj[name])
	if err != nil {
		return []string{}
	}
	return list
}

// extractionShape is the response shape of the extract-tools step.
var extractionShape = Shape{
	Fields: []Field{
		{Name: "tools", Kind: KindStringList, Description: "Names of distinct tools or companies, most relevant first"},
	},
}

// analysisShape is the response shape of the analyze-tool step.
var analysisShape = Shape{
	Fields: []Field{
		{Name: "name", Kind: KindString, Description: "Tool or company name"},
		{Name: "pricing", Kind: KindString, Description: "Pricing summary: Free, Freemium, Paid, Enterprise or Unknown"},
		{Name: "features", Kind: KindStringList, Description: "Notable product features"},
		{Name: "tech_stack", Kind: KindStringList, Description: "Languages, frameworks and platforms"},
		{Name: "integration_notes", Kind: KindString, Description: "APIs, SDKs and integration capabilities"},
	},
}
