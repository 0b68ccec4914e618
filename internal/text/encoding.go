package text

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	CodecWindows1252 = "windows-1252"
	CodecLatin1      = "latin1"
)

// maxRepairRounds bounds how many layers of double encoding are peeled off.
const maxRepairRounds = 3

// lostByte stands in for a U+FFFD left where a decoder had no mapping. 0x81 is the
// most frequent such byte in mis-decoded Arabic (ف) and Cyrillic (с, Ё) text.
const lostByte = 0x81

var ErrUnknownCodec = errors.New("unknown repair codec")

// Repairer undoes mojibake: UTF-8 text that was decoded with a single-byte codec
// somewhere upstream ("Ù†Ù†Ø²" instead of Arabic script).
type Repairer struct {
	codec   string
	charmap *charmap.Charmap
}

func NewRepairer(codec string) (*Repairer, error) {
	switch strings.ToLower(codec) {
	case "", CodecWindows1252, "cp1252":
		return &Repairer{codec: CodecWindows1252, charmap: charmap.Windows1252}, nil
	case CodecLatin1, "iso-8859-1":
		return &Repairer{codec: CodecLatin1, charmap: charmap.ISO8859_1}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, codec)
}

func (r *Repairer) Codec() string {
	return r.codec
}

// Repair re-encodes s under the codec and decodes the bytes as UTF-8, dropping
// undecodable bytes. The rewrite is kept only when it reaches a fixed point, which
// makes Repair idempotent; anything else returns s untouched.
func (r *Repairer) Repair(s string) string {
	current := s
	for i := 0; i < maxRepairRounds; i++ {
		next, ok := r.roundTrip(current)
		if !ok {
			return current
		}
		current = next
	}
	if _, ok := r.roundTrip(current); ok {
		return s
	}
	return current
}

func (r *Repairer) roundTrip(s string) (string, bool) {
	if isASCII(s) {
		return s, false
	}

	raw, ok := r.encode(s)
	if !ok {
		return s, false
	}

	var b strings.Builder
	b.Grow(len(raw))

	recovered, dropped := 0, 0
	for i := 0; i < len(raw); {
		c, size := utf8.DecodeRuneInString(raw[i:])
		if c == utf8.RuneError && size <= 1 {
			dropped++
			i++
			continue
		}
		if size > 1 {
			recovered++
		}
		b.WriteRune(c)
		i += size
	}

	if recovered == 0 || dropped >= recovered {
		return s, false
	}
	return b.String(), true
}

// encode maps s back to the bytes the codec would have decoded it from. Bytes the
// codec leaves undefined (0x81, 0x8D, 0x8F, 0x90, 0x9D in windows-1252) survive
// either as their C1 control rune or as U+FFFD, and are mapped back to a raw byte.
// Any other rune outside the codec means the text was never mis-decoded with it.
func (r *Repairer) encode(s string) (string, bool) {
	raw := make([]byte, 0, len(s))
	for _, c := range s {
		if c < utf8.RuneSelf {
			raw = append(raw, byte(c))
			continue
		}
		if b, ok := r.charmap.EncodeRune(c); ok {
			raw = append(raw, b)
			continue
		}
		switch {
		case c >= 0x80 && c <= 0x9F:
			raw = append(raw, byte(c))
		case c == utf8.RuneError:
			raw = append(raw, lostByte)
		default:
			return "", false
		}
	}
	return string(raw), true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
