package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverride_PositionalEntryAndFlags(t *testing.T) {
	root := t.TempDir()
	override, err := buildOverride(root, "main.php", "custom.db", "", []string{`prefix-map:App\:src`})
	require.NoError(t, err)

	assert.Equal(t, "main.php", override.Entry)
	assert.Equal(t, "custom.db", override.Database)
	absRoot, _ := filepath.Abs(root)
	assert.Equal(t, absRoot, override.Root)
	require.Len(t, override.Autoload, 1)
	assert.Equal(t, "prefix-map", override.Autoload[0].Kind)
}

func TestBuildOverride_NoEntryArgLeavesEntryEmpty(t *testing.T) {
	override, err := buildOverride(t.TempDir(), "", "", "", nil)
	require.NoError(t, err)
	assert.Empty(t, override.Entry)
}

func TestBuildOverride_AutoloadConfigFlag(t *testing.T) {
	override, err := buildOverride(t.TempDir(), "main.php", "", "vendor/manifest.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "vendor/manifest.json", override.ExternalAutoloadConfig)
}

func TestBuildOverride_MalformedAdditionalRule(t *testing.T) {
	_, err := buildOverride(t.TempDir(), "main.php", "", "", []string{"not-enough-parts"})
	require.Error(t, err)
}
