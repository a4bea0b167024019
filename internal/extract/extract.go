// Package extract pulls structured plant names out of the free-text answer
// returned by the identification service.
//
// Extraction is best effort. The labels are matched case-insensitively but
// the captured values are not normalized: a scientific name is recognised
// only in the two-token "Genus species" shape, and a common name is the rest
// of its line. Names that do not fit (hyphenated, three-part, wrapped in
// markdown) are missed or kept as-is.
package extract

import (
	"regexp"
	"strings"
)

var (
	scientificNameRe = regexp.MustCompile(`(?i:scientific name).*?:\s*([A-Z][a-z]+ [a-z]+)`)
	commonNameRe     = regexp.MustCompile(`(?i:common name).*?:\s*([^\n]+)`)
)

// Fields holds the names found in a response. Empty means not found.
type Fields struct {
	ScientificName string
	CommonName     string
}

// Parse runs both extractions against rawText. It never fails.
func Parse(rawText string) Fields {
	return Fields{
		ScientificName: ScientificName(rawText),
		CommonName:     CommonName(rawText),
	}
}

// ScientificName returns the first binomial following a "Scientific name" label.
func ScientificName(rawText string) string {
	m := scientificNameRe.FindStringSubmatch(rawText)
	if m == nil {
		return ""
	}
	return m[1]
}

// CommonName returns the trimmed remainder of the line following the first
// "Common name" label.
func CommonName(rawText string) string {
	m := commonNameRe.FindStringSubmatch(rawText)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
