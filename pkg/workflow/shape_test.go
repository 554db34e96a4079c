package workflow

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestShapeValidate(t *testing.T) {
	shape := Shape{Fields: []Field{
		{Name: "name", Kind: KindString},
		{Name: "features", Kind: KindStringList},
	}}

	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantField string
	}{
		{"Valid", `{"name":"Alpaca","features":["api"]}`, false, ""},
		{"Valid empty list", `{"name":"Alpaca","features":[]}`, false, ""},
		{"Valid with extra fields", `{"name":"Alpaca","features":[],"extra":1}`, false, ""},
		{"Missing field", `{"name":"Alpaca"}`, true, "features"},
		{"Wrong string type", `{"name":3,"features":[]}`, true, "name"},
		{"Wrong list type", `{"name":"Alpaca","features":"api"}`, true, "features"},
		{"Non-string list element", `{"name":"Alpaca","features":["a",2]}`, true, "features"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := map[string]any{}
			if err := json.Unmarshal([]byte(tt.input), &obj); err != nil {
				t.Fatalf("bad test input: %v", err)
			}

			err := shape.Validate(obj)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}

			var schemaErr *SchemaValidationError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("Validate() error type = %T, want SchemaValidationError", err)
			}
			if schemaErr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", schemaErr.Field, tt.wantField)
			}
		})
	}
}

func TestShapeValidateIdempotent(t *testing.T) {
	obj := map[string]any{
		"tools": []any{"Alpaca", "Tradier"},
	}
	for i := 0; i < 3; i++ {
		if err := extractionShape.Validate(obj); err != nil {
			t.Fatalf("Validate() pass %d error = %v, want nil", i+1, err)
		}
	}
}

func TestShapePromptBlock(t *testing.T) {
	block := analysisShape.PromptBlock()

	if !strings.Contains(block, `"required"`) {
		t.Error("PromptBlock() missing required clause")
	}
	for _, field := range []string{"name", "pricing", "features", "tech_stack", "integration_notes"} {
		if !strings.Contains(block, `"`+field+`"`) {
			t.Errorf("PromptBlock() missing field %q", field)
		}
	}

	// The embedded schema must itself be valid JSON.
	start := strings.Index(block, "{")
	if start < 0 {
		t.Fatal("PromptBlock() contains no JSON object")
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(block[start:]), &schema); err != nil {
		t.Fatalf("embedded schema is not valid JSON: %v", err)
	}
}
