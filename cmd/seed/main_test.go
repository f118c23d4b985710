package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/address-extractor/app/requests"
	"github.com/address-extractor/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSeedRequest(t *testing.T) {
	g, err := loadGazetteer("")
	require.NoError(t, err)
	rows := services.ZipcodeDocs(g.Infos())

	path := filepath.Join(t.TempDir(), "seed_request.json")
	require.NoError(t, writeSeedRequest(path, rows, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var req requests.SeedGazetteerRequest
	require.NoError(t, json.Unmarshal(data, &req))
	assert.True(t, req.RebuildIndexes)
	assert.Len(t, req.Data, g.Len())
	assert.Equal(t, rows[0].Zipcode, req.Data[0].Zipcode)
}
