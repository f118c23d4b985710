package normalizer

import (
	"strings"
	"unicode"
)

// UnitMarker is the standalone token produced for a leading "#".
const UnitMarker = "#"

var punctuationStripper = strings.NewReplacer(".", "", ",", "")

// Token is one normalized unit of a window. Source is the index of the raw
// whitespace token it was cut from, so "#14" yields two tokens sharing a Source.
type Token struct {
	Text   string
	Source int
}

// Tokenize splits text on runs of Unicode whitespace (no-break spaces
// included) and drops empty fragments.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// CleanTokens strips periods and commas from every raw token and splits a
// leading "#" into its own token. Tokens left empty are dropped.
func CleanTokens(raw []string) []Token {
	tokens := make([]Token, 0, len(raw))
	for i, r := range raw {
		cleaned := punctuationStripper.Replace(r)
		if strings.HasPrefix(cleaned, UnitMarker) {
			tokens = append(tokens, Token{Text: UnitMarker, Source: i})
			cleaned = strings.ReplaceAll(cleaned, UnitMarker, "")
		}
		if cleaned == "" {
			continue
		}
		tokens = append(tokens, Token{Text: cleaned, Source: i})
	}
	return tokens
}

// IsNumeric reports whether s is non-empty and made only of decimal digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Texts returns the text of each token.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
