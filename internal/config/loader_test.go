package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromKDLFile(t *testing.T) {
	root := t.TempDir()
	kdl := `
entry "main.php"
output "dist/bundle.php"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(kdl), 0o644))

	cfg, err := Load(root, nil)
	require.NoError(t, err)
	assert.Equal(t, "main.php", cfg.Entry)
	assert.Equal(t, "dist/bundle.php", cfg.Output)
	assert.Equal(t, root, cfg.Root)
}

func TestLoad_CLIOverrideWins(t *testing.T) {
	root := t.TempDir()
	kdl := `
entry "main.php"
output "dist/bundle.php"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(kdl), 0o644))

	cfg, err := Load(root, &Config{Output: "dist/override.php"})
	require.NoError(t, err)
	assert.Equal(t, "main.php", cfg.Entry)
	assert.Equal(t, "dist/override.php", cfg.Output)
}

func TestLoad_GitignoreFoldedIntoExcludes(t *testing.T) {
	root := t.TempDir()
	kdl := `
entry "main.php"
output "dist/bundle.php"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(kdl), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("vendor/\n"), 0o644))

	cfg, err := Load(root, nil)
	require.NoError(t, err)
	assert.Contains(t, cfg.ExcludePatterns, "**/vendor/**")
}

func TestLoad_MissingEntryFailsValidation(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root, nil)
	require.Error(t, err)
}

func TestResolveOutputPath(t *testing.T) {
	cfg := &Config{Root: "/proj", Output: "dist/bundle.php"}
	assert.Equal(t, "/proj/dist/bundle.php", ResolveOutputPath(cfg))

	cfg2 := &Config{Root: "/proj", Output: "/abs/bundle.php"}
	assert.Equal(t, "/abs/bundle.php", ResolveOutputPath(cfg2))
}
