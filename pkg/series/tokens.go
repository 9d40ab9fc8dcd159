package series

import (
	"regexp"
	"strings"
)

// stopwords excluded from topic tokens. Meeting boilerplate is included so
// that words like "meeting" or "sync" never dominate a topic profile.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "this": {},
	"that": {}, "will": {}, "have": {}, "has": {}, "was": {}, "were": {},
	"are": {}, "been": {}, "about": {}, "into": {}, "over": {}, "under": {},
	"all": {}, "any": {}, "our": {}, "your": {}, "their": {}, "them": {},
	"then": {}, "than": {}, "when": {}, "where": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"not": {}, "but": {}, "you": {}, "per": {}, "via": {},
	"meeting": {}, "call": {}, "sync": {}, "catchup": {}, "invite": {},
	"agenda": {}, "notes": {}, "join": {}, "zoom": {}, "discussion": {},
}

var tokenSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// DefaultMinTokenLength is the minimum topic token length.
const DefaultMinTokenLength = 3

// Tokenize extracts lowercase topic tokens from free text, dropping stopwords
// and tokens shorter than minLen. Pass 0 for the default minimum length.
// Tokenization is a boundary utility: topic tokens enter the core already
// extracted, the scorers never look at raw text.
func Tokenize(text string, minLen int) []string {
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}

	parts := tokenSplit.Split(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(parts))
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) < minLen {
			continue
		}
		if _, stop := stopwords[p]; stop {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		tokens = append(tokens, p)
	}
	return tokens
}
