package extractor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenCase is one testdata/golden/*.json file.
type GoldenCase struct {
	Raw    string          `json:"raw"`
	Expect []GoldenOutcome `json:"expect"`
}

// GoldenOutcome describes one window of the scan, in document order.
type GoldenOutcome struct {
	Valid         bool              `json:"valid"`
	Tag           string            `json:"tag,omitempty"`
	CanonicalText string            `json:"canonical_text,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Absent        []string          `json:"absent,omitempty"`
}

func TestGoldenCases(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "golden", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ex := newTestExtractor(t)
	for _, file := range files {
		file := file
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			require.NoError(t, err)

			var gc GoldenCase
			require.NoError(t, json.Unmarshal(data, &gc))

			addrs := ex.ExtractAll(gc.Raw)
			require.Len(t, addrs, len(gc.Expect))
			for i, want := range gc.Expect {
				checkGoldenOutcome(t, addrs[i], want)
			}
		})
	}
}

func checkGoldenOutcome(t *testing.T, addr *Address, want GoldenOutcome) {
	t.Helper()

	assert.Equal(t, want.Valid, addr.Valid(), addr.Describe())
	assert.Equal(t, want.Tag, string(addr.Tag()))
	if want.CanonicalText != "" {
		assert.Equal(t, want.CanonicalText, addr.String())
	}
	for name, expected := range want.Fields {
		f, ok := ParseField(name)
		require.True(t, ok, "unknown field %q", name)
		v, present := addr.Get(f)
		assert.True(t, present, "field %s absent", name)
		assert.Equal(t, expected, v, "field %s", name)
	}
	for _, name := range want.Absent {
		f, ok := ParseField(name)
		require.True(t, ok, "unknown field %q", name)
		_, present := addr.Get(f)
		assert.False(t, present, "field %s should be absent", name)
	}
}
