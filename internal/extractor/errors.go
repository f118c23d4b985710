package extractor

import "fmt"

// ErrorTag names the pipeline step that rejected a window.
type ErrorTag string

const (
	TagInvalidStreetNumber      ErrorTag = "InvalidStreetNumber"
	TagStateNotFound            ErrorTag = "StateNotFound"
	TagZipcodeNotFound          ErrorTag = "ZipcodeNotFound"
	TagInvalidCityStateZipCombo ErrorTag = "InvalidCityStateZipCombo"
	TagNoStreetType             ErrorTag = "NoStreetType"
	TagNoStreetName             ErrorTag = "NoStreetName"
	TagStreetNameTooLong        ErrorTag = "StreetNameTooLong"
	TagUnitTypeWithoutNumber    ErrorTag = "UnitTypeWithoutNumber"
	TagUnidentifiedParts        ErrorTag = "UnidentifiedParts"
	TagTooShort                 ErrorTag = "TooShort"
)

var tagMessages = map[ErrorTag]string{
	TagInvalidStreetNumber:      "Invalid Street Number",
	TagStateNotFound:            "State Not Found",
	TagZipcodeNotFound:          "Zipcode Not Found",
	TagInvalidCityStateZipCombo: "Invalid City/State/Zipcode Combo",
	TagNoStreetType:             "No Street Type",
	TagNoStreetName:             "No Street Name",
	TagStreetNameTooLong:        "Street name too long",
	TagUnitTypeWithoutNumber:    "Unit type has no corresponding number",
	TagUnidentifiedParts:        "Address has unidentified parts",
	TagTooShort:                 "Invalid Address Format - Too short",
}

// Message returns the human readable description of the tag.
func (t ErrorTag) Message() string {
	if msg, ok := tagMessages[t]; ok {
		return msg
	}
	return string(t)
}

// ExtractionError is the hard failure that stopped a window's pipeline.
// Position is the window position being inspected, or -1.
type ExtractionError struct {
	Tag      ErrorTag
	Position int
}

func (e *ExtractionError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("%s: %s", e.Tag, e.Tag.Message())
	}
	return fmt.Sprintf("%s at position %d: %s", e.Tag, e.Position, e.Tag.Message())
}

// Is matches any ExtractionError carrying the same tag, so callers can use
// errors.Is(addr.Err(), extractor.ErrStateNotFound).
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	return ok && t.Tag == e.Tag
}

var (
	ErrInvalidStreetNumber      = &ExtractionError{Tag: TagInvalidStreetNumber, Position: -1}
	ErrStateNotFound            = &ExtractionError{Tag: TagStateNotFound, Position: -1}
	ErrZipcodeNotFound          = &ExtractionError{Tag: TagZipcodeNotFound, Position: -1}
	ErrInvalidCityStateZipCombo = &ExtractionError{Tag: TagInvalidCityStateZipCombo, Position: -1}
	ErrNoStreetType             = &ExtractionError{Tag: TagNoStreetType, Position: -1}
	ErrNoStreetName             = &ExtractionError{Tag: TagNoStreetName, Position: -1}
	ErrStreetNameTooLong        = &ExtractionError{Tag: TagStreetNameTooLong, Position: -1}
	ErrUnitTypeWithoutNumber    = &ExtractionError{Tag: TagUnitTypeWithoutNumber, Position: -1}
	ErrUnidentifiedParts        = &ExtractionError{Tag: TagUnidentifiedParts, Position: -1}
	ErrTooShort                 = &ExtractionError{Tag: TagTooShort, Position: -1}
)

func fail(tag ErrorTag, position int) *ExtractionError {
	return &ExtractionError{Tag: tag, Position: position}
}
