package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "Simple", input: "13 Maple St. Phoenix, AZ 85053", expected: []string{"13", "Maple", "St.", "Phoenix,", "AZ", "85053"}},
		{name: "Surrounding whitespace", input: "\n   13  Maple\tSt\n", expected: []string{"13", "Maple", "St"}},
		{name: "Empty", input: "   \n\t", expected: []string{}},
		{name: "No-break space", input: "13\u00a0Maple St\u00a0Phoenix", expected: []string{"13", "Maple", "St", "Phoenix"}},
		{name: "Vertical tab and ideographic space", input: "13\vMaple\u3000St", expected: []string{"13", "Maple", "St"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Tokenize(tc.input))
		})
	}
}

func TestCleanTokens(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []Token
	}{
		{
			name:     "Strips periods and commas",
			input:    []string{"N.", "Phoenix,", "8,5.053"},
			expected: []Token{{"N", 0}, {"Phoenix", 1}, {"85053", 2}},
		},
		{
			name:     "Splits leading hash",
			input:    []string{"Rd", "#14", "Scottsdale"},
			expected: []Token{{"Rd", 0}, {"#", 1}, {"14", 1}, {"Scottsdale", 2}},
		},
		{
			name:     "Lone hash keeps only the marker",
			input:    []string{"#", "3"},
			expected: []Token{{"#", 0}, {"3", 1}},
		},
		{
			name:     "Drops tokens left empty",
			input:    []string{"Phoenix", ",", "AZ"},
			expected: []Token{{"Phoenix", 0}, {"AZ", 2}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanTokens(tc.input))
		})
	}
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("13"))
	assert.True(t, IsNumeric("0042"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("2."))
	assert.False(t, IsNumeric("1f93"))
	assert.False(t, IsNumeric("85374-3628"))
}

func TestFoldKey(t *testing.T) {
	assert.Equal(t, "saint louis", FoldKey("  Saint   LOUIS "))
	assert.Equal(t, "coeur d'alene", FoldKey("Coeur d'Alêne"))
	assert.Equal(t, "san jose", FoldKey("San José"))
}
