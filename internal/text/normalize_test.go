package text

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var asciiCharset = regexp.MustCompile(`^[a-z ]*$`)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(ModeASCII)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Empty", "", ""},
		{"Lowercases", "Hello World", "hello world"},
		{"Strips Diacritics", "Café crème brûlée", "cafe creme brulee"},
		{"Strips Times And Digits", "Café at 12:30, 3 times!!", "cafe at times"},
		{"Symbols Become Spaces", "great-video/amazing", "great video amazing"},
		{"Collapses Whitespace", "  lots   of\t\tspace \n here ", "lots of space here"},
		{"Only Digits", "2024 12:00", ""},
		{"Fullwidth Folded", "ＨＥＬＬＯ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	inputs := []string{
		"Check this out!! soo good 😀",
		"Café at 12:30, 3 times!!",
		"Привет мир",
		"مرحبا بالعالم 123",
		"ÀÉÎÕÜ ñ ç ß",
		"tab\tseparated\nlines",
	}

	for _, mode := range []Mode{ModeASCII, ModeUnicode} {
		n := NewNormalizer(mode)
		for _, in := range inputs {
			once := n.Normalize(in)
			assert.Equal(t, once, n.Normalize(once), "mode=%s input=%q", mode, in)
		}
	}
}

func TestNormalizer_ASCIICharset(t *testing.T) {
	n := NewNormalizer(ModeASCII)
	inputs := []string{
		"Check this out!! soo good 😀",
		"Привет мир",
		"مرحبا بالعالم",
		"<b>html</b> & entities; 100%",
		"日本語のテキスト",
	}
	for _, in := range inputs {
		out := n.Normalize(in)
		assert.Regexp(t, asciiCharset, out, "input=%q", in)
		assert.NotContains(t, out, "  ")
	}
}

func TestNormalizer_UnicodeMode(t *testing.T) {
	n := NewNormalizer(ModeUnicode)
	assert.Equal(t, ModeUnicode, n.Mode())

	t.Run("Keeps Scripts And Pictographs", func(t *testing.T) {
		assert.Equal(t, "héllo 😀 مرحبا", n.Normalize("Héllo 😀 مرحبا 42"))
	})

	t.Run("Drops Punctuation And Times", func(t *testing.T) {
		assert.Equal(t, "привет мир", n.Normalize("Привет, мир! 10:45"))
	})
}

func TestNewNormalizer_UnknownModeFallsBack(t *testing.T) {
	assert.Equal(t, ModeASCII, NewNormalizer("").Mode())
	assert.Equal(t, ModeASCII, NewNormalizer("other").Mode())
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpaces("  a \t b\n\nc  "))
	assert.Equal(t, "", CollapseSpaces("   "))
}
