package models

import "time"

// AddressComponents holds one extracted address. A nil field was never
// assigned; an empty string would mean it was assigned empty text.
type AddressComponents struct {
	StreetNumber    *string `json:"street_number" bson:"street_number,omitempty"`
	StreetDirection *string `json:"street_direction" bson:"street_direction,omitempty"`
	StreetName      *string `json:"street_name" bson:"street_name,omitempty"`
	StreetType      *string `json:"street_type" bson:"street_type,omitempty"`
	UnitType        *string `json:"unit_type" bson:"unit_type,omitempty"`
	UnitNumber      *string `json:"unit_number" bson:"unit_number,omitempty"`
	City            *string `json:"city" bson:"city,omitempty"`
	State           *string `json:"state" bson:"state,omitempty"`
	Zipcode         *string `json:"zipcode" bson:"zipcode,omitempty"`
}

// AddressResult is one window of a scanned document.
type AddressResult struct {
	Offset        int               `json:"offset" bson:"offset"`                                     // Document token index of the street number
	Status        string            `json:"status" bson:"status"`                                     // valid | invalid
	CanonicalText string            `json:"canonical_text,omitempty" bson:"canonical_text,omitempty"` // Only set for valid addresses
	Rendered      string            `json:"rendered" bson:"rendered"`                                 // Assigned fields, valid or not
	Components    AddressComponents `json:"components" bson:"components"`
	ErrorTag      string            `json:"error_tag,omitempty" bson:"error_tag,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Tokens        []string          `json:"tokens" bson:"tokens"` // Normalized window
	Hint          *CityHint         `json:"hint,omitempty" bson:"hint,omitempty"`
}

// CityHint explains an InvalidCityStateZipCombo outcome.
type CityHint struct {
	Zipcode       string  `json:"zipcode" bson:"zipcode"`
	ExpectedCity  string  `json:"expected_city" bson:"expected_city"` // City registered for the zipcode
	ExpectedState string  `json:"expected_state" bson:"expected_state"`
	Candidate     string  `json:"candidate" bson:"candidate"`   // Closest span before the state
	Distance      int     `json:"distance" bson:"distance"`     // Levenshtein
	Similarity    float64 `json:"similarity" bson:"similarity"` // Jaro-Winkler
}

// ExtractionResult is the outcome of scanning one document.
type ExtractionResult struct {
	DocumentFingerprint string          `json:"document_fingerprint" bson:"document_fingerprint"`
	GazetteerVersion    string          `json:"gazetteer_version" bson:"gazetteer_version"`
	Addresses           []AddressResult `json:"addresses" bson:"addresses"`
	Total               int             `json:"total" bson:"total"`
	Valid               int             `json:"valid" bson:"valid"`
	Invalid             int             `json:"invalid" bson:"invalid"`
	ExtractedAt         time.Time       `json:"extracted_at" bson:"extracted_at"`
}

// Status constants
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
)

// IsValidStatus reports whether the status is one of the known values.
func (ar *AddressResult) IsValidStatus() bool {
	return ar.Status == StatusValid || ar.Status == StatusInvalid
}

// ValidAddresses returns only the valid windows.
func (er *ExtractionResult) ValidAddresses() []AddressResult {
	out := make([]AddressResult, 0, er.Valid)
	for _, a := range er.Addresses {
		if a.Status == StatusValid {
			out = append(out, a)
		}
	}
	return out
}
