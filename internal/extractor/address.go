package extractor

import (
	"fmt"
	"strings"

	"github.com/address-extractor/internal/normalizer"
)

// Field is one semantic role a window position can be claimed for.
type Field int

const (
	FieldStreetNumber Field = iota
	FieldDirection
	FieldStreetName
	FieldStreetType
	FieldUnitType
	FieldUnitNumber
	FieldCity
	FieldState
	FieldZipcode

	numFields
)

// Fields lists every field in canonical rendering order.
var Fields = []Field{
	FieldStreetNumber,
	FieldDirection,
	FieldStreetName,
	FieldStreetType,
	FieldUnitType,
	FieldUnitNumber,
	FieldCity,
	FieldState,
	FieldZipcode,
}

// RequiredFields must all be present on a valid address.
var RequiredFields = []Field{
	FieldStreetNumber,
	FieldStreetName,
	FieldStreetType,
	FieldCity,
	FieldState,
	FieldZipcode,
}

var fieldNames = [numFields]string{
	"street_number",
	"street_direction",
	"street_name",
	"street_type",
	"unit_type",
	"unit_number",
	"city",
	"state",
	"zipcode",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField maps a field name such as "street_type" back to its Field.
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// span is a half-open range of window positions. Scalar fields have hi = lo+1.
type span struct {
	lo, hi int
	ok     bool
}

// indexSet tracks the positions not yet claimed by any field.
type indexSet struct {
	present []bool
	size    int
}

func newIndexSet(n int) indexSet {
	s := indexSet{present: make([]bool, n), size: n}
	for i := range s.present {
		s.present[i] = true
	}
	return s
}

func (s *indexSet) has(i int) bool {
	return i >= 0 && i < len(s.present) && s.present[i]
}

func (s *indexSet) remove(i int) {
	if s.has(i) {
		s.present[i] = false
		s.size--
	}
}

func (s *indexSet) len() int { return s.size }

// list returns the unclaimed positions in ascending order.
func (s *indexSet) list() []int {
	out := make([]int, 0, s.size)
	for i, ok := range s.present {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Address is one classified window. It is built and classified once by the
// Extractor and is read-only afterwards; failed windows keep the fields that
// were assigned before the failing step.
type Address struct {
	tokens    []normalizer.Token
	offset    int
	fields    [numFields]span
	remaining indexSet
	err       *ExtractionError
}

func newAddress(tokens []normalizer.Token, offset int) *Address {
	return &Address{
		tokens:    tokens,
		offset:    offset,
		remaining: newIndexSet(len(tokens)),
	}
}

// Get returns the text of a field. The boolean is false when the field was
// never assigned, which is distinct from an assigned field.
func (a *Address) Get(f Field) (string, bool) {
	if f < 0 || f >= numFields {
		return "", false
	}
	sp := a.fields[f]
	if !sp.ok {
		return "", false
	}
	parts := make([]string, 0, sp.hi-sp.lo)
	for _, tok := range a.tokens[sp.lo:sp.hi] {
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " "), true
}

// Value is Get without the presence flag.
func (a *Address) Value(f Field) string {
	v, _ := a.Get(f)
	return v
}

// Position returns the half-open window range claimed by a field.
func (a *Address) Position(f Field) (lo, hi int, ok bool) {
	if f < 0 || f >= numFields {
		return 0, 0, false
	}
	sp := a.fields[f]
	return sp.lo, sp.hi, sp.ok
}

func (a *Address) StreetNumber() (string, bool) { return a.Get(FieldStreetNumber) }
func (a *Address) Direction() (string, bool)    { return a.Get(FieldDirection) }
func (a *Address) StreetName() (string, bool)   { return a.Get(FieldStreetName) }
func (a *Address) StreetType() (string, bool)   { return a.Get(FieldStreetType) }
func (a *Address) UnitType() (string, bool)     { return a.Get(FieldUnitType) }
func (a *Address) UnitNumber() (string, bool)   { return a.Get(FieldUnitNumber) }
func (a *Address) City() (string, bool)         { return a.Get(FieldCity) }
func (a *Address) State() (string, bool)        { return a.Get(FieldState) }
func (a *Address) Zipcode() (string, bool)      { return a.Get(FieldZipcode) }

// Valid reports whether every step succeeded.
func (a *Address) Valid() bool { return a.err == nil }

// Err returns the failure that stopped the pipeline, or nil.
func (a *Address) Err() error {
	if a.err == nil {
		return nil
	}
	return a.err
}

// Tag returns the error tag, or "" for a valid address.
func (a *Address) Tag() ErrorTag {
	if a.err == nil {
		return ""
	}
	return a.err.Tag
}

// Message returns the human readable failure, or "" for a valid address.
func (a *Address) Message() string {
	if a.err == nil {
		return ""
	}
	return a.err.Tag.Message()
}

// Tokens returns the normalized window text.
func (a *Address) Tokens() []string {
	return normalizer.Texts(a.tokens)
}

// Remaining returns the window positions no field claimed.
func (a *Address) Remaining() []int {
	return a.remaining.list()
}

// Offset is the document index of the window's first token.
func (a *Address) Offset() int { return a.offset }

// NextOffset is the first document index the scanner may open a window at
// after this one: just past the zipcode for a valid address, otherwise the
// token after the street number.
func (a *Address) NextOffset() int {
	if a.err != nil || !a.fields[FieldZipcode].ok {
		return a.offset + 1
	}
	zip := a.tokens[a.fields[FieldZipcode].lo]
	return a.offset + zip.Source + 1
}

// String is the canonical form of a valid address; invalid addresses render
// as "".
func (a *Address) String() string {
	if !a.Valid() {
		return ""
	}
	return a.Render()
}

// Render joins whatever fields were assigned, valid or not.
func (a *Address) Render() string {
	parts := make([]string, 0, len(Fields))
	for _, f := range Fields {
		if v, ok := a.Get(f); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Describe is the diagnostic form used in logs and the CLI.
func (a *Address) Describe() string {
	if a.Valid() {
		return fmt.Sprintf("<Address address: %s>", a.String())
	}
	return fmt.Sprintf("<Address error: %s, address: %s>", a.Message(), a.Render())
}

func (a *Address) claim(f Field, lo, hi int) {
	a.fields[f] = span{lo: lo, hi: hi, ok: true}
	for i := lo; i < hi; i++ {
		a.remaining.remove(i)
	}
}

func (a *Address) text(i int) string {
	return a.tokens[i].Text
}
