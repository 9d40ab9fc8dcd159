package series

import (
	"regexp"
	"strings"
)

// Noise patterns stripped from titles before keying. Ordered so that longer,
// more specific patterns run before the generic ones.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),    // YYYY-MM-DD, before the short form
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),  // MM/DD/YYYY or MM-DD-YYYY
	regexp.MustCompile(`(?i)\b\d{8}\b`),                      // YYYYMMDD export suffixes
	regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?\b`), // Month DD
	regexp.MustCompile(`(?i)\d{1,2}:\d{2}(\s*(am|pm))?`),     // times
	regexp.MustCompile(`(?i)\bweek\s+\d+\b`),                 // week numbers
	regexp.MustCompile(`(?i)\bq[1-4](\s+\d{4})?\b`),          // quarters
	regexp.MustCompile(`#\d+`),                               // occurrence numbers
	regexp.MustCompile(`\(\s*\d+\s*\)`),                      // (3)
}

var (
	punctNoise     = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
	multiSpace     = regexp.MustCompile(`\s+`)
	edgeSeparators = " \t-–—:|,./"
)

// Normalize canonicalizes a raw meeting title into a comparable series key.
// It strips embedded dates, occurrence/week numbers and punctuation noise,
// lower-cases and collapses whitespace. The second return value is the first
// date or ordinal token that was removed; callers may use it as a secondary
// signal but never for series identity.
//
// Normalize is pure: same input always yields the same output, no I/O.
func Normalize(rawTitle string) (key string, extracted string) {
	result := rawTitle
	for _, pattern := range noisePatterns {
		if extracted == "" {
			if m := pattern.FindString(result); m != "" {
				extracted = strings.TrimSpace(m)
			}
		}
		result = pattern.ReplaceAllString(result, " ")
	}

	result = strings.ToLower(result)
	result = punctNoise.ReplaceAllString(result, " ")
	result = multiSpace.ReplaceAllString(result, " ")
	result = strings.Trim(result, edgeSeparators)

	if result == "" {
		// Title was pure noise; fall back to the trimmed lowercase original
		// so the occurrence still gets a stable key.
		result = strings.TrimSpace(strings.ToLower(rawTitle))
	}

	return result, extracted
}
