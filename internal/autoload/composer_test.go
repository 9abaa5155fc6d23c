package autoload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/phpbundle/internal/store"
)

func TestLoadComposerRules(t *testing.T) {
	root := t.TempDir()
	manifest := `{
		"autoload": {
			"psr-4": {"App\\": "src/"},
			"psr-0": {"Pear_": "lib/"},
			"classmap": ["src/legacy/Foo.php"],
			"files": ["bootstrap/helpers.php"]
		}
	}`
	path := filepath.Join(root, "composer.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	rules := LoadComposerRules(path)
	require.Len(t, rules, 4)

	var kinds []store.AutoloadRuleKind
	for _, r := range rules {
		kinds = append(kinds, r.Kind)
	}
	require.ElementsMatch(t, []store.AutoloadRuleKind{
		store.AutoloadRuleKindPrefixMap,
		store.AutoloadRuleKindLegacyPrefixMap,
		store.AutoloadRuleKindClassmap,
		store.AutoloadRuleKindFiles,
	}, kinds)
}

func TestLoadComposerRules_MissingFileReturnsNil(t *testing.T) {
	rules := LoadComposerRules(filepath.Join(t.TempDir(), "composer.json"))
	require.Nil(t, rules)
}

func TestLoadComposerRules_MalformedJSONReturnsNil(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "composer.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	require.Nil(t, LoadComposerRules(path))
}

func TestFindComposerJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "composer.json"), []byte("{}"), 0o644))

	path, ok := FindComposerJSON(root)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "composer.json"), path)
}

func TestFindComposerJSON_Absent(t *testing.T) {
	_, ok := FindComposerJSON(t.TempDir())
	require.False(t, ok)
}
