package text

import (
	"regexp"
	"strings"
)

var (
	controlRe = regexp.MustCompile(`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}-\x{206F}\x{FEFF}]`)
	urlRe     = regexp.MustCompile(`(?i)http\S+|www\.\S+`)
	mentionRe = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
)

// maxRepeat is how many identical consecutive characters survive repetition collapse.
const maxRepeat = 2

// StripArtifacts removes structural noise from a raw comment: invisible control
// characters, URLs, mentions and hashtags, then squeezes character repetition so
// "sooooo" becomes "soo".
func StripArtifacts(s string) string {
	if s == "" {
		return ""
	}
	s = controlRe.ReplaceAllString(s, "")
	s = urlRe.ReplaceAllString(s, " ")
	s = mentionRe.ReplaceAllString(s, " ")
	s = hashtagRe.ReplaceAllString(s, " ")
	s = CollapseSpaces(s)
	return CollapseRepeats(s, maxRepeat)
}

// CollapseRepeats shortens every run of the same rune longer than limit down to limit.
// RE2 has no backreferences, so the `(.)\1{2,}` rewrite is done by hand.
func CollapseRepeats(s string, limit int) string {
	if limit < 1 || len(s) <= limit {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= limit {
			b.WriteRune(r)
		}
	}
	return b.String()
}
