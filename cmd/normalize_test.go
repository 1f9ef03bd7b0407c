package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"segments":[]}`), 0o644))

	got, err := readPayload(path)
	require.NoError(t, err)
	assert.Equal(t, `{"segments":[]}`, got)
}

func TestReadPayload_Missing(t *testing.T) {
	_, err := readPayload(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normalize: read")
}

func TestNormalizeCmd_Flags(t *testing.T) {
	for _, name := range []string{"provider", "model"} {
		assert.NotNil(t, normalizeCmd.Flags().Lookup(name), name)
	}
}
