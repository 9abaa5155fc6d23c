package autoload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/phpbundle/internal/store"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("<?php\n"), 0o644))
}

func TestFindFileForSymbol_PrefixMapPrefersLongestPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/Sub/Foo.php")
	writeFile(t, root, "legacy/Sub/Foo.php")

	rules := []store.AutoloadRule{
		{Kind: store.AutoloadRuleKindPrefixMap, Prefix: `App\`, Path: "legacy"},
		{Kind: store.AutoloadRuleKindPrefixMap, Prefix: `App\Sub\`, Path: "src/Sub"},
	}
	e := New(root, rules)

	got, ok := e.FindFileForSymbol(`App\Sub\Foo`)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "src/Sub/Foo.php"), got)
}

func TestFindFileForSymbol_ClassmapBeatsPrefixMap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/Foo.php")
	writeFile(t, root, "override/Foo.php")

	rules := []store.AutoloadRule{
		{Kind: store.AutoloadRuleKindPrefixMap, Prefix: `App\`, Path: "src"},
		{Kind: store.AutoloadRuleKindClassmap, Prefix: `App\Foo`, Path: "override/Foo.php"},
	}
	e := New(root, rules)

	got, ok := e.FindFileForSymbol(`App\Foo`)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "override/Foo.php"), got)
}

func TestFindFileForSymbol_LegacyPSR0UnderscoreSeparator(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/Pear/Foo/Bar.php")

	rules := []store.AutoloadRule{
		{Kind: store.AutoloadRuleKindLegacyPrefixMap, Prefix: "Pear_", Path: "lib"},
	}
	e := New(root, rules)

	got, ok := e.FindFileForSymbol("Pear_Foo_Bar")
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "lib/Pear/Foo/Bar.php"), got)
}

func TestFindFileForSymbol_PrefixMapSkipsNonexistentCandidate(t *testing.T) {
	root := t.TempDir()
	rules := []store.AutoloadRule{
		{Kind: store.AutoloadRuleKindPrefixMap, Prefix: `App\`, Path: "src"},
	}
	e := New(root, rules)

	_, ok := e.FindFileForSymbol(`App\Missing`)
	require.False(t, ok)
}

func TestFindFileForSymbol_NoMatchingRule(t *testing.T) {
	e := New(t.TempDir(), nil)
	_, ok := e.FindFileForSymbol(`Anything\AtAll`)
	require.False(t, ok)
}

func TestAlwaysLoadedFiles(t *testing.T) {
	root := t.TempDir()
	rules := []store.AutoloadRule{
		{Kind: store.AutoloadRuleKindFiles, Path: "bootstrap/helpers.php"},
		{Kind: store.AutoloadRuleKindFiles, Path: "bootstrap/constants.php"},
		{Kind: store.AutoloadRuleKindPrefixMap, Prefix: `App\`, Path: "src"},
	}
	e := New(root, rules)
	require.ElementsMatch(t, []string{
		filepath.Join(root, "bootstrap/helpers.php"),
		filepath.Join(root, "bootstrap/constants.php"),
	}, e.AlwaysLoadedFiles())
}
