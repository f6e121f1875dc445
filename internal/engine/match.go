package engine

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics: decompose, drop combining marks,
// recompose. "Générale" and "Generale" normalize to the same string.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips accents and collapses whitespace. All
// textual matching (name and alert kinds) compares normalized forms.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// NameMatches reports whether a followed name equals a record's subject
// name, ignoring case, accents and spacing.
func NameMatches(followed, name string) bool {
	n := Normalize(followed)
	return n != "" && n == Normalize(name)
}

// minFuzzyWordLen gates the edit-distance fallback: short words produce
// too many accidental one-edit neighbours.
const minFuzzyWordLen = 5

// AlertMatches reports whether a free-text alert phrase matches text.
//
// A phrase matches when, after normalization, it is a substring of the
// text, or every phrase word occurs in the text in any order. Word
// occurrence is exact, or within Levenshtein distance 1 for words long
// enough to make a single edit meaningful.
func AlertMatches(phrase, text string) bool {
	np := Normalize(phrase)
	nt := Normalize(text)
	if np == "" || nt == "" {
		return false
	}
	if strings.Contains(nt, np) {
		return true
	}

	phraseWords := tokens(np)
	if len(phraseWords) == 0 {
		return false
	}
	textWords := tokens(nt)
	for _, w := range phraseWords {
		if !wordOccurs(w, textWords) {
			return false
		}
	}
	return true
}

// tokens splits a normalized string into letter/digit runs, so "l'energie"
// yields both "l" and "energie" for word-level comparison.
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordOccurs(w string, textWords []string) bool {
	fuzzy := len([]rune(w)) >= minFuzzyWordLen
	for _, tw := range textWords {
		if tw == w {
			return true
		}
		if fuzzy && len([]rune(tw)) >= minFuzzyWordLen && levenshtein.ComputeDistance(w, tw) <= 1 {
			return true
		}
	}
	return false
}
