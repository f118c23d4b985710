package search

import (
	"strings"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/internal/extractor"
	"github.com/address-extractor/internal/normalizer"
	"github.com/address-extractor/internal/reference"
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// maxCityTokens bounds the spans compared against the registered city.
const maxCityTokens = 4

// CitySuggester explains InvalidCityStateZipCombo outcomes by comparing the
// tokens before the state with the city the gazetteer registers for the
// zipcode. The outcome itself is never changed.
type CitySuggester struct {
	ref *reference.Reference
}

// NewCitySuggester creates a suggester over the given reference data.
func NewCitySuggester(ref *reference.Reference) *CitySuggester {
	return &CitySuggester{ref: ref}
}

// Suggest returns a hint for addresses rejected on the city/state/zip check.
func (cs *CitySuggester) Suggest(addr *extractor.Address) (*models.CityHint, bool) {
	if addr.Tag() != extractor.TagInvalidCityStateZipCombo {
		return nil, false
	}
	zipcode, ok := addr.Zipcode()
	if !ok {
		return nil, false
	}
	info, ok := cs.ref.Lookup(zipcode)
	if !ok {
		return nil, false
	}
	state, _, ok := addr.Position(extractor.FieldState)
	if !ok {
		return nil, false
	}

	expected := normalizer.FoldKey(info.City)
	tokens := addr.Tokens()
	hint := &models.CityHint{
		Zipcode:       info.Zipcode,
		ExpectedCity:  info.City,
		ExpectedState: info.State,
		Distance:      -1,
	}

	// Position 0 is the street number, so candidates start at 1.
	var span []string
	for i := state - 1; i >= 1 && len(span) < maxCityTokens; i-- {
		span = append([]string{tokens[i]}, span...)
		expanded := make([]string, len(span))
		for j, tok := range span {
			expanded[j] = cs.ref.ExpandAbbreviation(tok)
		}
		candidate := normalizer.FoldKey(strings.Join(expanded, " "))

		similarity := smetrics.JaroWinkler(candidate, expected, 0.7, 4)
		if hint.Distance < 0 || similarity > hint.Similarity {
			hint.Candidate = strings.Join(span, " ")
			hint.Similarity = similarity
			hint.Distance = levenshtein.ComputeDistance(candidate, expected)
		}
	}
	if hint.Distance < 0 {
		hint.Distance = len(expected)
	}
	return hint, true
}
