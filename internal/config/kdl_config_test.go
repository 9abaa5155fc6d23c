package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ".phpbundle.db", cfg.Database)
	assert.Empty(t, cfg.Entry)
	assert.Empty(t, cfg.Output)
}

func TestParseKDL_EntryOutputDatabase(t *testing.T) {
	kdlContent := `
entry "main.php"
output "dist/bundle.php"
database "build/graph.db"
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "main.php", cfg.Entry)
	assert.Equal(t, "dist/bundle.php", cfg.Output)
	assert.Equal(t, "build/graph.db", cfg.Database)
}

func TestParseKDL_IncludeExcludePaths(t *testing.T) {
	kdlContent := `
include_paths {
    "src/**"
    "lib/**"
}
exclude_patterns {
    "tests/**"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"src/**", "lib/**"}, cfg.IncludePaths)
	assert.Equal(t, []string{"tests/**"}, cfg.ExcludePatterns)
}

func TestParseKDL_AutoloadRules(t *testing.T) {
	kdlContent := `
autoload {
    prefix-map "App\\" "src"
    classmap "App\\Legacy\\Foo" "src/Legacy/Foo.php"
    files "bootstrap.php"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	require.Len(t, cfg.Autoload, 3)

	assert.Equal(t, AutoloadRuleSpec{Kind: "prefix-map", Prefix: "App\\", Path: "src"}, cfg.Autoload[0])
	assert.Equal(t, AutoloadRuleSpec{Kind: "classmap", Prefix: "App\\Legacy\\Foo", Path: "src/Legacy/Foo.php"}, cfg.Autoload[1])
	assert.Equal(t, AutoloadRuleSpec{Kind: "files", Path: "bootstrap.php"}, cfg.Autoload[2])
}

func TestParseKDL_Optimization(t *testing.T) {
	kdlContent := `
optimization {
    remove_comments true
    remove_whitespace true
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	assert.True(t, cfg.Optimization.RemoveComments)
	assert.True(t, cfg.Optimization.RemoveWhitespace)
}

func TestParseKDL_Runtime(t *testing.T) {
	kdlContent := `
runtime {
    environment "production"
    version "8.2"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Runtime["environment"])
	assert.Equal(t, "8.2", cfg.Runtime["version"])
}

func TestParseKDL_FullConfig(t *testing.T) {
	kdlContent := `
entry "main.php"
output "dist/bundle.php"
database ".phpbundle.db"

include_paths {
    "src/**"
}
exclude_patterns {
    "vendor/**"
}

autoload {
    prefix-map "App\\" "src"
}

optimization {
    remove_comments true
    remove_whitespace false
}

runtime {
    environment "production"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, "main.php", cfg.Entry)
	assert.Equal(t, "dist/bundle.php", cfg.Output)
	assert.Equal(t, ".phpbundle.db", cfg.Database)
	assert.Equal(t, []string{"src/**"}, cfg.IncludePaths)
	assert.Equal(t, []string{"vendor/**"}, cfg.ExcludePatterns)
	require.Len(t, cfg.Autoload, 1)
	assert.Equal(t, "App\\", cfg.Autoload[0].Prefix)
	assert.True(t, cfg.Optimization.RemoveComments)
	assert.False(t, cfg.Optimization.RemoveWhitespace)
	assert.Equal(t, "production", cfg.Runtime["environment"])
}

func TestLoadKDL_MissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
