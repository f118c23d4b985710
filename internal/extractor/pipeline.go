package extractor

import (
	"strings"

	"github.com/address-extractor/internal/normalizer"
)

const (
	// MaxWindowTokens bounds how many document tokens a window may inspect.
	MaxWindowTokens = 15
	// MaxStreetNameTokens bounds the street name, direction included.
	MaxStreetNameTokens = 4
)

// Lookups is the reference data the pipeline validates against. All checks
// are case-insensitive and implementations must be safe for concurrent reads.
type Lookups interface {
	IsState(token string) bool
	IsZip5(token string) bool
	IsZipDashed(token string) bool
	// IsValidPlace compares the zipcode on its 5-digit prefix only.
	IsValidPlace(city, state, zipcode string) bool
	IsStreetType(token string) bool
	IsUnitType(token string) bool
	IsDirection(token string) bool
	ExpandAbbreviation(token string) string
}

type step struct {
	name string
	run  func(a *Address, l Lookups) *ExtractionError
}

// pipeline is ordered: every step relies on positions claimed by the ones
// before it.
var pipeline = []step{
	{"street_number", extractStreetNumber},
	{"state", extractState},
	{"zipcode", extractZipcode},
	{"city", extractCity},
	{"discard_trailing", discardAfterZipcode},
	{"street_type", extractStreetType},
	{"street_name", extractStreetName},
	{"unit_type", extractUnitType},
	{"unit_number", extractUnitNumber},
	{"residual", checkRemaining},
}

func runPipeline(a *Address, l Lookups) {
	for _, s := range pipeline {
		if err := s.run(a, l); err != nil {
			a.err = err
			return
		}
	}
}

func extractStreetNumber(a *Address, _ Lookups) *ExtractionError {
	if len(a.tokens) == 0 {
		return fail(TagTooShort, 0)
	}
	if !normalizer.IsNumeric(a.text(0)) {
		return fail(TagInvalidStreetNumber, 0)
	}
	a.claim(FieldStreetNumber, 0, 1)
	return nil
}

func extractState(a *Address, l Lookups) *ExtractionError {
	for _, i := range a.remaining.list() {
		if l.IsState(a.text(i)) {
			a.claim(FieldState, i, i+1)
			return nil
		}
	}
	return fail(TagStateNotFound, -1)
}

// extractZipcode only looks at the token right after the state.
func extractZipcode(a *Address, l Lookups) *ExtractionError {
	i := a.fields[FieldState].lo + 1
	if i >= len(a.tokens) {
		return fail(TagTooShort, i)
	}
	tok := a.text(i)
	if !l.IsZip5(tok) && !l.IsZipDashed(tok) {
		return fail(TagZipcodeNotFound, i)
	}
	a.claim(FieldZipcode, i, i+1)
	return nil
}

// extractCity grows a candidate right-to-left from the token before the state
// and accepts the shortest span the gazetteer confirms for the state and
// zipcode. The street number bounds the search.
func extractCity(a *Address, l Lookups) *ExtractionError {
	state := a.fields[FieldState].lo
	stateText := a.Value(FieldState)
	zipText := a.Value(FieldZipcode)

	var candidate []string
	for i := state - 1; i >= 0; i-- {
		if !a.remaining.has(i) {
			break
		}
		candidate = append([]string{l.ExpandAbbreviation(a.text(i))}, candidate...)
		if l.IsValidPlace(strings.Join(candidate, " "), stateText, zipText) {
			a.claim(FieldCity, i, state)
			return nil
		}
	}
	return fail(TagInvalidCityStateZipCombo, state)
}

func discardAfterZipcode(a *Address, _ Lookups) *ExtractionError {
	zip := a.fields[FieldZipcode].lo
	for i := zip + 1; i < len(a.tokens); i++ {
		a.remaining.remove(i)
	}
	return nil
}

// extractStreetType takes the match closest to the city, so a street name
// that happens to be a suffix word ("Park", "Court") stays in the name.
func extractStreetType(a *Address, l Lookups) *ExtractionError {
	city := a.fields[FieldCity].lo
	for i := city - 1; i >= 0; i-- {
		if a.remaining.has(i) && l.IsStreetType(a.text(i)) {
			a.claim(FieldStreetType, i, i+1)
			return nil
		}
	}
	return fail(TagNoStreetType, city)
}

func extractStreetName(a *Address, l Lookups) *ExtractionError {
	streetType := a.fields[FieldStreetType].lo
	var parts []int
	for _, i := range a.remaining.list() {
		if i < streetType {
			parts = append(parts, i)
		}
	}
	if len(parts) > MaxStreetNameTokens {
		return fail(TagStreetNameTooLong, parts[0])
	}
	if len(parts) == 0 {
		return fail(TagNoStreetName, streetType)
	}
	if len(parts) > 1 && l.IsDirection(a.text(parts[0])) {
		a.claim(FieldDirection, parts[0], parts[0]+1)
		parts = parts[1:]
	}
	a.claim(FieldStreetName, parts[0], streetType)
	return nil
}

// extractUnitType is optional and never fails.
func extractUnitType(a *Address, l Lookups) *ExtractionError {
	city := a.fields[FieldCity].lo
	for i := city - 1; i >= 0; i-- {
		if a.remaining.has(i) && l.IsUnitType(a.text(i)) {
			a.claim(FieldUnitType, i, i+1)
			return nil
		}
	}
	return nil
}

func extractUnitNumber(a *Address, _ Lookups) *ExtractionError {
	if !a.fields[FieldUnitType].ok {
		return nil
	}
	i := a.fields[FieldUnitType].lo + 1
	if !a.remaining.has(i) {
		return fail(TagUnitTypeWithoutNumber, i)
	}
	a.claim(FieldUnitNumber, i, i+1)
	return nil
}

func checkRemaining(a *Address, _ Lookups) *ExtractionError {
	if rest := a.remaining.list(); len(rest) > 0 {
		return fail(TagUnidentifiedParts, rest[0])
	}
	return nil
}
