package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ScalarOverrideTakesPrecedence(t *testing.T) {
	base := &Config{Entry: "main.php", Output: "dist/base.php", Database: "base.db"}
	override := &Config{Output: "dist/override.php"}

	merged := Merge(base, override)

	assert.Equal(t, "main.php", merged.Entry)
	assert.Equal(t, "dist/override.php", merged.Output)
	assert.Equal(t, "base.db", merged.Database)
}

func TestMerge_PathListsAppend(t *testing.T) {
	base := &Config{ExcludePatterns: []string{"vendor/**"}}
	override := &Config{ExcludePatterns: []string{"tests/**"}}

	merged := Merge(base, override)

	assert.Equal(t, []string{"vendor/**", "tests/**"}, merged.ExcludePatterns)
}

func TestMerge_AutoloadRulesAppend(t *testing.T) {
	base := &Config{Autoload: []AutoloadRuleSpec{{Kind: "prefix-map", Prefix: "App\\", Path: "src"}}}
	override := &Config{Autoload: []AutoloadRuleSpec{{Kind: "classmap", Prefix: "App\\Foo", Path: "src/Foo.php"}}}

	merged := Merge(base, override)

	require.Len(t, merged.Autoload, 2)
	assert.Equal(t, "prefix-map", merged.Autoload[0].Kind)
	assert.Equal(t, "classmap", merged.Autoload[1].Kind)
}

func TestMerge_RuntimeKeysOverlay(t *testing.T) {
	base := &Config{Runtime: map[string]string{"environment": "development", "version": "8.1"}}
	override := &Config{Runtime: map[string]string{"environment": "production"}}

	merged := Merge(base, override)

	assert.Equal(t, "production", merged.Runtime["environment"])
	assert.Equal(t, "8.1", merged.Runtime["version"])
}

func TestMerge_ExternalAutoloadConfigOverrideTakesPrecedence(t *testing.T) {
	base := &Config{}
	override := &Config{ExternalAutoloadConfig: "vendor-manifest.json"}

	merged := Merge(base, override)

	assert.Equal(t, "vendor-manifest.json", merged.ExternalAutoloadConfig)
}

func TestParseAdditionalRule(t *testing.T) {
	rule, err := ParseAdditionalRule(`prefix-map:App\:src`)
	require.NoError(t, err)
	assert.Equal(t, AutoloadRuleSpec{Kind: "prefix-map", Prefix: `App\`, Path: "src"}, rule)
}

func TestParseAdditionalRule_Malformed(t *testing.T) {
	_, err := ParseAdditionalRule("not-enough-parts")
	require.Error(t, err)
}
