package reference

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/address-extractor/internal/normalizer"
	"gopkg.in/yaml.v3"
)

//go:embed data/street_types.txt
var streetTypesTxt []byte

//go:embed data/unit_types.txt
var unitTypesTxt []byte

//go:embed data/rules.yaml
var rulesYAML []byte

// RulesConfig holds the vocabulary kept in data/rules.yaml.
type RulesConfig struct {
	Directions        []string          `yaml:"directions"`
	UnitMarkers       []string          `yaml:"unit_markers"`
	CityAbbreviations map[string]string `yaml:"city_abbreviations"`
}

// LoadRulesConfig parses the embedded rules.
func LoadRulesConfig() (*RulesConfig, error) {
	config := &RulesConfig{}
	if err := yaml.Unmarshal(rulesYAML, config); err != nil {
		return nil, fmt.Errorf("parse rules.yaml: %w", err)
	}
	return config, nil
}

// Vocabulary answers the street-type, unit-type, direction and abbreviation
// lookups. All membership checks are case-insensitive.
type Vocabulary struct {
	streetTypes   map[string]struct{}
	unitTypes     map[string]struct{}
	directions    map[string]struct{}
	abbreviations map[string]string
}

// DefaultVocabulary builds the vocabulary from the embedded data files.
func DefaultVocabulary() (*Vocabulary, error) {
	rules, err := LoadRulesConfig()
	if err != nil {
		return nil, err
	}
	return NewVocabulary(
		readWordList(streetTypesTxt, false),
		append(readWordList(unitTypesTxt, true), rules.UnitMarkers...),
		rules.Directions,
		rules.CityAbbreviations,
	), nil
}

// NewVocabulary builds a vocabulary from explicit word lists.
func NewVocabulary(streetTypes, unitTypes, directions []string, abbreviations map[string]string) *Vocabulary {
	v := &Vocabulary{
		streetTypes:   toSet(streetTypes),
		unitTypes:     toSet(unitTypes),
		directions:    toSet(directions),
		abbreviations: make(map[string]string, len(abbreviations)),
	}
	for abbr, full := range abbreviations {
		v.abbreviations[strings.ToLower(abbr)] = full
	}
	return v
}

// IsStreetType reports whether token is a street suffix such as "St" or "Blvd".
func (v *Vocabulary) IsStreetType(token string) bool {
	_, ok := v.streetTypes[strings.ToLower(token)]
	return ok
}

// IsUnitType reports whether token names a unit ("Apt", "Suite", "#").
func (v *Vocabulary) IsUnitType(token string) bool {
	if strings.HasPrefix(token, normalizer.UnitMarker) {
		return true
	}
	_, ok := v.unitTypes[strings.ToLower(token)]
	return ok
}

// IsDirection reports whether token is a compass direction.
func (v *Vocabulary) IsDirection(token string) bool {
	_, ok := v.directions[strings.ToLower(token)]
	return ok
}

// ExpandAbbreviation turns "St" into "saint"; other tokens come back unchanged.
func (v *Vocabulary) ExpandAbbreviation(token string) string {
	if full, ok := v.abbreviations[strings.ToLower(token)]; ok {
		return full
	}
	return token
}

// readWordList reads one entry per line; with splitCommas each line may hold
// several comma-separated aliases.
func readWordList(data []byte, splitCommas bool) []string {
	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !splitCommas {
			words = append(words, line)
			continue
		}
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				words = append(words, part)
			}
		}
	}
	return words
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
