package reportindex

import "testing"

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid standard", "toolscout_reports", true},
		{"Valid with underscore", "my_collection", true},
		{"Valid with numbers", "collection123", true},
		{"Valid short", "a", true},
		{"Valid max length", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz0123456789_", true}, // 63 chars
		{"Invalid start with number", "1collection", false},
		{"Invalid special chars", "collection-name", false},
		{"Invalid space", "collection name", false},
		{"Invalid SQL injection", "users; DROP TABLE reports", false},
		{"Invalid empty", "", false},
		{"Invalid too long", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz0123456789___", false}, // 65 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidTableName(tt.input); got != tt.expected {
				t.Errorf("isValidTableName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewRejectsInvalidName(t *testing.T) {
	if _, err := New(nil, "bad-name"); err == nil {
		t.Error("New() = nil error, want invalid collection name error")
	}
}
