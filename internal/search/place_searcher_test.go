package search

import (
	"testing"

	"github.com/address-extractor/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFilter(t *testing.T) {
	assert.Equal(t, "", StateFilter(""))
	assert.Equal(t, "", StateFilter("  "))
	assert.Equal(t, `state = "AZ"`, StateFilter("az"))
}

func TestPlaceDocuments(t *testing.T) {
	docs := PlaceDocuments([]reference.ZipcodeInfo{
		{Zipcode: "85053", City: "Phoenix", StateName: "Arizona", State: "AZ", County: "Maricopa", Latitude: 33.63, Longitude: -112.13},
	})

	require.Len(t, docs, 1)
	assert.Equal(t, "85053", docs[0]["id"])
	assert.Equal(t, "Phoenix", docs[0]["city"])
	assert.Equal(t, "Arizona", docs[0]["state_name"])
	assert.Equal(t, -112.13, docs[0]["longitude"])
}

func TestParseHits(t *testing.T) {
	hits := []interface{}{
		map[string]interface{}{
			"id":         "63103",
			"zipcode":    "63103",
			"city":       "Saint Louis",
			"state":      "MO",
			"state_name": "Missouri",
			"county":     "Saint Louis City",
			"latitude":   38.6333,
			"longitude":  -90.2164,
		},
		map[string]interface{}{"city": "No zipcode"},
		"not a map",
	}

	places := parseHits(hits)
	require.Len(t, places, 1)
	assert.Equal(t, "Saint Louis", places[0].City)
	assert.Equal(t, "MO", places[0].State)
	assert.Equal(t, 38.6333, places[0].Latitude)
}

func TestParseHits_Empty(t *testing.T) {
	assert.Empty(t, parseHits(nil))
}
