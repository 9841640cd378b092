package search

import "strings"

// Stop words ignored when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "has": true, "what": true, "which": true,
}

// tokenizeAndFilter splits text into lowercased words with surrounding
// punctuation and stop words removed.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}
	return filtered
}

// containsAllQueryWords reports whether every filtered query word appears in
// the passage. A query made only of stop words never matches.
func containsAllQueryWords(passage, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	passageWords := make(map[string]bool)
	for _, word := range tokenizeAndFilter(passage) {
		passageWords[word] = true
	}

	for _, word := range queryWords {
		if !passageWords[word] {
			return false
		}
	}
	return true
}
