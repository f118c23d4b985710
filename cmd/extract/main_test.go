package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadInput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("13 Maple St Phoenix AZ 85053"), 0o644))

	text, err := readInput(path)
	require.NoError(t, err)
	assert.Equal(t, "13 Maple St Phoenix AZ 85053", text)

	_, err = readInput(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadReference(t *testing.T) {
	ref, err := loadReference("", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, ref.IsValidPlace("Phoenix", "AZ", "85053"))

	_, err = loadReference(filepath.Join(t.TempDir(), "missing.csv"), zap.NewNop())
	assert.Error(t, err)
}
