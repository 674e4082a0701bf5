package dedup

import "strings"

// maxDescriptionChars bounds how much narrative text enters the embedding,
// so a long description cannot dilute the title and category signal.
const maxDescriptionChars = 500

// BuildEmbeddingText assembles the structured document that gets embedded.
// Section labels and the repeated title bias the sentence-embedding model
// toward title and category as primary discriminants:
//
//	[TITLE] pothole on elm
//	[CATEGORY] roads
//	[ISSUE] pothole on elm. deep pothole near the school crossing
//	[LOCATION] elm school crossing
//
// The [LOCATION] line is omitted when no salient terms remain.
func BuildEmbeddingText(title, category, description, location string) string {
	normalizedTitle := Normalize(title)
	normalizedCategory := Normalize(category)
	normalizedDescription := truncateRunes(Normalize(description), maxDescriptionChars)

	var b strings.Builder
	b.WriteString("[TITLE] ")
	b.WriteString(normalizedTitle)
	b.WriteString("\n[CATEGORY] ")
	b.WriteString(normalizedCategory)
	b.WriteString("\n[ISSUE] ")
	b.WriteString(normalizedTitle)
	b.WriteString(". ")
	b.WriteString(normalizedDescription)

	if terms := ExtractLocationTerms(location); terms != "" {
		b.WriteString("\n[LOCATION] ")
		b.WriteString(terms)
	}
	return b.String()
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
