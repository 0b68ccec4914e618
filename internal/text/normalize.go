package text

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rainycape/unidecode"
	"golang.org/x/text/unicode/norm"
)

type Mode string

const (
	// ModeASCII transliterates to ASCII and keeps only [a-z].
	ModeASCII Mode = "ascii"
	// ModeUnicode keeps letters of any script plus the Arabic block and pictographs.
	ModeUnicode Mode = "unicode"
)

var (
	numericRe    = regexp.MustCompile(`\d+:\d+|\d+`)
	nonASCIIRe   = regexp.MustCompile(`[^a-z\s]`)
	unicodeNumRe = regexp.MustCompile(`\p{N}+(?::\p{N}+)?`)
)

// Normalizer folds comment text down to lowercase whitespace-separated tokens.
type Normalizer struct {
	mode Mode
}

func NewNormalizer(mode Mode) *Normalizer {
	if mode != ModeUnicode {
		mode = ModeASCII
	}
	return &Normalizer{mode: mode}
}

func (n *Normalizer) Mode() Mode {
	return n.mode
}

// Normalize applies, in order: transliteration and lowercasing, numeric stripping,
// charset restriction and whitespace collapse. The result is idempotent.
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	if n.mode == ModeUnicode {
		return n.normalizeUnicode(s)
	}

	s = unidecode.Unidecode(norm.NFKC.String(s))
	s = strings.ToLower(s)
	s = numericRe.ReplaceAllString(s, "")
	s = nonASCIIRe.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

func (n *Normalizer) normalizeUnicode(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	s = unicodeNumRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || keepUnicode(r) {
			return r
		}
		return ' '
	}, s)
	return CollapseSpaces(s)
}

func keepUnicode(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	}
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)
}

// CollapseSpaces turns every whitespace run into a single space and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
