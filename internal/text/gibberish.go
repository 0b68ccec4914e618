package text

import (
	"fmt"
	"regexp"
)

const (
	DefaultMinAlnumRun  = 30
	DefaultMinSymbolRun = 5
)

// GibberishDetector flags comments that carry no language: keyboard mashes, ids and
// long symbol runs. It must see the text before symbols are stripped.
type GibberishDetector struct {
	re *regexp.Regexp
}

func NewGibberishDetector(minAlnumRun, minSymbolRun int) *GibberishDetector {
	if minAlnumRun <= 0 {
		minAlnumRun = DefaultMinAlnumRun
	}
	if minSymbolRun <= 0 {
		minSymbolRun = DefaultMinSymbolRun
	}
	// RE2 refuses repetition counts above 1000.
	minAlnumRun = min(minAlnumRun, 1000)
	minSymbolRun = min(minSymbolRun, 1000)

	pattern := fmt.Sprintf(`[A-Za-z0-9]{%d,}|[^\p{L}\p{N}_\s]{%d,}`, minAlnumRun, minSymbolRun)
	return &GibberishDetector{re: regexp.MustCompile(pattern)}
}

func (d *GibberishDetector) IsGibberish(s string) bool {
	return d.re.MatchString(s)
}
