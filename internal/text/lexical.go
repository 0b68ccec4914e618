package text

import (
	"strings"
	"unicode/utf8"
)

const (
	// Tokens this short or shorter are always dropped.
	maxDroppedLen = 2
	// Tokens this short or shorter must be dictionary words to survive.
	maxCheckedLen = 3

	DefaultMinTokens = 2
)

// Vocabulary is the read-only word knowledge the lexical filter consults.
type Vocabulary interface {
	IsStopword(word string) bool
	InDictionary(word string) bool
}

// FilterTokens drops stopwords and tokens of two characters or fewer, then drops
// three-character tokens the dictionary does not know. Longer tokens survive even
// when unknown so slang and names are kept.
func FilterTokens(s string, vocab Vocabulary) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, tok := range fields {
		n := utf8.RuneCountInString(tok)
		if n <= maxDroppedLen || vocab.IsStopword(tok) {
			continue
		}
		if n <= maxCheckedLen && !vocab.InDictionary(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// TokenCount counts whitespace-separated tokens.
func TokenCount(s string) int {
	return len(strings.Fields(s))
}
