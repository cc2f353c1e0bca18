package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveArchive(t *testing.T) {
	path, err := saveArchive(strings.NewReader("zip bytes"), "IA015")
	require.NoError(t, err)
	defer os.Remove(path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(body))
	assert.Contains(t, path, "wss_IA015_")
}
