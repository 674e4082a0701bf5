package dedup

import (
	"regexp"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	strippedPattern   = regexp.MustCompile(`[^\w\s.,!?'-]`)
	numericPattern    = regexp.MustCompile(`^\d+$`)
)

// locationStopWords are generic address tokens that dominate raw addresses
// and add only noise to the text embedding.
var locationStopWords = map[string]bool{
	"street":    true,
	"road":      true,
	"avenue":    true,
	"lane":      true,
	"drive":     true,
	"building":  true,
	"floor":     true,
	"block":     true,
	"near":      true,
	"nearby":    true,
	"opposite":  true,
	"behind":    true,
	"beside":    true,
	"next":      true,
	"sector":    true,
	"plot":      true,
	"house":     true,
	"flat":      true,
	"apartment": true,
	"number":    true,
	"area":      true,
	"zone":      true,
	"junction":  true,
	"cross":     true,
	"main":      true,
	"the":       true,
}

// Normalize canonicalizes free text: lowercase, trim, collapse whitespace
// runs, and strip everything but word characters and basic punctuation.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strippedPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractLocationTerms normalizes a free-text address and keeps only its
// salient tokens: stop words, pure-numeric tokens, and tokens of length <= 2
// are dropped. Original token order is preserved.
func ExtractLocationTerms(location string) string {
	normalized := Normalize(location)
	if normalized == "" {
		return ""
	}

	var kept []string
	for _, token := range strings.Fields(normalized) {
		trimmed := strings.Trim(token, ".,!?'-")
		if len(trimmed) <= 2 {
			continue
		}
		if locationStopWords[trimmed] {
			continue
		}
		if numericPattern.MatchString(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}
