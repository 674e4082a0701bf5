package dedup

import (
	"strings"
	"testing"
)

func TestBuildEmbeddingText(t *testing.T) {
	got := BuildEmbeddingText(
		"Streetlight BROKEN",
		"LIGHTING",
		"The streetlight has been out for a week",
		"12 Elm Street near Central Park",
	)

	expected := "[TITLE] streetlight broken\n" +
		"[CATEGORY] lighting\n" +
		"[ISSUE] streetlight broken. the streetlight has been out for a week\n" +
		"[LOCATION] elm central park"
	if got != expected {
		t.Errorf("BuildEmbeddingText() =\n%q\nwant\n%q", got, expected)
	}
}

func TestBuildEmbeddingTextOmitsEmptyLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
	}{
		{"no location", ""},
		{"boilerplate only location", "Street 5, Sector 12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEmbeddingText("Pothole", "ROADS", "deep pothole", tt.location)
			if strings.Contains(got, "[LOCATION]") {
				t.Errorf("expected no [LOCATION] section, got %q", got)
			}
		})
	}
}

func TestBuildEmbeddingTextTruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := BuildEmbeddingText("Pothole", "ROADS", long, "")

	issueLine := ""
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "[ISSUE] ") {
			issueLine = line
		}
	}
	if issueLine == "" {
		t.Fatal("missing [ISSUE] line")
	}

	// "[ISSUE] " + "pothole. " + 500 chars
	body := strings.TrimPrefix(issueLine, "[ISSUE] pothole. ")
	if len([]rune(body)) != maxDescriptionChars {
		t.Errorf("description length = %d, want %d", len([]rune(body)), maxDescriptionChars)
	}
}
