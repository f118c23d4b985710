package normalizer

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks ("Coeur d'Alêne" -> "Coeur d'Alene").
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	out, _, _ := transform.String(t, s)
	return out
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// FoldKey builds the comparison key used by every reference lookup: no
// diacritics, ASCII only, lowercase, single spaces.
func FoldKey(s string) string {
	s = unidecode.Unidecode(StripDiacritics(s))
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
