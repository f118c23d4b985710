// Package reference holds the read-only lookup data the extractor queries:
// the zipcode gazetteer, the state table and the street/unit/direction
// vocabulary.
package reference

import (
	"github.com/address-extractor/internal/normalizer"
)

// Reference bundles a gazetteer and a vocabulary. It is immutable once built
// and safe for concurrent use.
type Reference struct {
	*Gazetteer
	*Vocabulary
}

// New combines a gazetteer and a vocabulary.
func New(g *Gazetteer, v *Vocabulary) *Reference {
	return &Reference{Gazetteer: g, Vocabulary: v}
}

// Default loads the embedded gazetteer and vocabulary.
func Default() (*Reference, error) {
	g, err := DefaultGazetteer()
	if err != nil {
		return nil, err
	}
	v, err := DefaultVocabulary()
	if err != nil {
		return nil, err
	}
	return New(g, v), nil
}

// IsState accepts a two-letter code or a single-token full name, in any case.
func (r *Reference) IsState(token string) bool {
	key := normalizer.FoldKey(token)
	if key == "" {
		return false
	}
	if _, ok := StateCode(key); ok {
		return true
	}
	return r.Gazetteer.HasState(key)
}
