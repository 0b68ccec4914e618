// Package vocabulary holds the read-only word sets used by the lexical filter:
// stopwords for the configured languages and the dictionary of accepted short words.
package vocabulary

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"
	"github.com/kljensen/snowball/russian"
	"github.com/kljensen/snowball/spanish"
	"github.com/kljensen/snowball/swedish"
	"github.com/rainycape/unidecode"
)

//go:embed stopwords/*.txt
var stopwordFS embed.FS

var ErrUnsupportedLanguage = errors.New("unsupported stopword language")

// snowballStopwords are the stemmer's stopword predicates. The embedded lists
// under stopwords/ add the nltk words snowball lacks, stored with their
// transliterated forms, because ascii-normalized tokens have lost their accents.
var snowballStopwords = map[string]func(string) bool{
	"en": english.IsStopWord,
	"fr": french.IsStopWord,
	"es": spanish.IsStopWord,
	"ru": russian.IsStopWord,
	"sv": swedish.IsStopWord,
}

// DefaultLanguages mirrors the English, French and Spanish mix found in the comment corpus.
var DefaultLanguages = []string{"en", "fr", "es"}

// Lexicon answers dictionary membership for a word form.
type Lexicon interface {
	InDict(word string) bool
}

type Options struct {
	Languages      []string
	StopwordsFile  string
	DictionaryFile string
	// Lexicon backs dictionary lookups beyond DictionaryFile. Nil loads the
	// embedded English lemma dictionary.
	Lexicon Lexicon
	// SkipLexicon disables the lemma dictionary entirely.
	SkipLexicon bool
}

// Vocabulary is immutable after New and safe for concurrent use.
type Vocabulary struct {
	languages  []string
	stopwords  map[string]struct{}
	dictionary map[string]struct{}
	lexicon    Lexicon
	predicates []func(string) bool
}

func New(opts Options) (*Vocabulary, error) {
	langs := opts.Languages
	if len(langs) == 0 {
		langs = DefaultLanguages
	}

	v := &Vocabulary{
		stopwords:  make(map[string]struct{}),
		dictionary: make(map[string]struct{}),
	}

	for _, lang := range langs {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		pred, hasPred := snowballStopwords[lang]
		f, err := stopwordFS.Open("stopwords/" + lang + ".txt")
		switch {
		case err == nil:
			err = readWords(f, v.stopwords)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s stopwords: %w", lang, err)
			}
		case !hasPred:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
		}
		if hasPred {
			v.predicates = append(v.predicates, pred)
		}
		v.languages = append(v.languages, lang)
	}

	if opts.StopwordsFile != "" {
		if err := readWordFile(opts.StopwordsFile, v.stopwords); err != nil {
			return nil, fmt.Errorf("failed to load stopwords file: %w", err)
		}
	}
	if opts.DictionaryFile != "" {
		if err := readWordFile(opts.DictionaryFile, v.dictionary); err != nil {
			return nil, fmt.Errorf("failed to load dictionary file: %w", err)
		}
	}

	switch {
	case opts.SkipLexicon:
	case opts.Lexicon != nil:
		v.lexicon = opts.Lexicon
	default:
		lemmatizer, err := golem.New(en.New())
		if err != nil {
			return nil, fmt.Errorf("failed to load english lexicon: %w", err)
		}
		v.lexicon = lemmatizer
	}

	return v, nil
}

// NewFromWords builds a vocabulary from literal word lists, without any embedded
// language data or lexicon.
func NewFromWords(stopwords, dictionary []string) *Vocabulary {
	v := &Vocabulary{
		stopwords:  make(map[string]struct{}, len(stopwords)),
		dictionary: make(map[string]struct{}, len(dictionary)),
	}
	for _, w := range stopwords {
		addWord(v.stopwords, w)
	}
	for _, w := range dictionary {
		addWord(v.dictionary, w)
	}
	return v
}

func (v *Vocabulary) Languages() []string {
	return append([]string(nil), v.languages...)
}

// IsStopword checks the literal set, then each language's snowball predicate
// against the word and its transliteration.
func (v *Vocabulary) IsStopword(word string) bool {
	if _, ok := v.stopwords[word]; ok {
		return true
	}
	if len(v.predicates) == 0 {
		return false
	}
	folded := unidecode.Unidecode(word)
	for _, isStop := range v.predicates {
		if isStop(word) || (folded != word && isStop(folded)) {
			return true
		}
	}
	return false
}

func (v *Vocabulary) InDictionary(word string) bool {
	if _, ok := v.dictionary[word]; ok {
		return true
	}
	return v.lexicon != nil && v.lexicon.InDict(word)
}

// StopwordCount reports the size of the literal stopword set.
func (v *Vocabulary) StopwordCount() int {
	return len(v.stopwords)
}

func readWordFile(path string, into map[string]struct{}) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return err
	}
	defer f.Close()
	return readWords(f, into)
}

func readWords(r io.Reader, into map[string]struct{}) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addWord(into, line)
	}
	return scanner.Err()
}

// addWord stores the lowercase form and its transliteration, because normalized
// tokens have lost their diacritics by the time they are looked up.
func addWord(into map[string]struct{}, w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return
	}
	into[w] = struct{}{}
	if folded := unidecode.Unidecode(w); folded != w {
		into[folded] = struct{}{}
	}
}
