package dedup

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and trims",
			input:    "  Streetlight BROKEN  ",
			expected: "streetlight broken",
		},
		{
			name:     "collapses whitespace runs",
			input:    "water\t\tleak\n\non   elm",
			expected: "water leak on elm",
		},
		{
			name:     "strips special characters keeps basic punctuation",
			input:    "pothole @ Main St. #5 (huge!), what?",
			expected: "pothole main st. 5 huge!, what?",
		},
		{
			name:     "keeps hyphens and apostrophes",
			input:    "won't fix the north-east corner",
			expected: "won't fix the north-east corner",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  Streetlight BROKEN  ",
		"pothole @ Main St. #5 (huge!)",
		"water\t\tleak\n\non   elm",
		"",
		"already normalized text",
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestExtractLocationTerms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "drops generic address tokens",
			input:    "12 Elm Street near Central Park",
			expected: "elm central park",
		},
		{
			name:     "drops pure numeric and short tokens",
			input:    "Block 42, Flat 3B, Rosewood Avenue",
			expected: "rosewood",
		},
		{
			name:     "preserves original order",
			input:    "Kensington Road behind Riverside Building",
			expected: "kensington riverside",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only boilerplate",
			input:    "Street 5, Sector 12",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLocationTerms(tt.input)
			if got != tt.expected {
				t.Errorf("ExtractLocationTerms(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
