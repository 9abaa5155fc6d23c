package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"collapses dot segments", "./a/./b", "a/b"},
		{"collapses dotdot segments", "a/b/../c", "a/c"},
		{"normalizes backslashes", `a\b\c`, "a/b/c"},
		{"removes duplicate separators", "a//b///c", "a/b/c"},
		{"preserves absolute paths", "/a/b/../c", "/a/c"},
		{"empty path stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Canonicalize(tt.path))
		})
	}
}

func TestRelativeTo(t *testing.T) {
	assert.Equal(t, "src/main.php", RelativeTo("/project/src/main.php", "/project"))
	assert.Equal(t, "/other/file.php", RelativeTo("/other/file.php", "/project"))
	assert.Equal(t, "src/main.php", RelativeTo("src/main.php", "/project"))
}

func TestAbsoluteOf(t *testing.T) {
	assert.Equal(t, "/project/src/main.php", AbsoluteOf("src/main.php", "/project"))
	assert.Equal(t, "/abs/main.php", AbsoluteOf("/abs/main.php", "/project"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b/c", Join("a", "b", "c"))
	assert.Equal(t, "a/c", Join("a", "./b/..", "c"))
}

func TestResolveLiteralInclude(t *testing.T) {
	fakeExists := func(existing ...string) existsFunc {
		set := make(map[string]struct{}, len(existing))
		for _, e := range existing {
			set[Canonicalize(e)] = struct{}{}
		}
		return func(path string) bool {
			_, ok := set[Canonicalize(path)]
			return ok
		}
	}

	t.Run("resolves __DIR__ relative to source file", func(t *testing.T) {
		exists := fakeExists("/root/a/x.php")
		resolved, ok := resolveLiteralInclude("__DIR__/x.php", "/root/a/b.php", "/root", exists)
		require.True(t, ok)
		assert.Equal(t, "/root/a/x.php", resolved)
	})

	t.Run("falls back through root/source_dir then root then cwd", func(t *testing.T) {
		exists := fakeExists("/root/lib/helper.php")
		resolved, ok := resolveLiteralInclude("lib/helper.php", "/root/src/main.php", "/root", exists)
		require.True(t, ok)
		assert.Equal(t, "/root/lib/helper.php", resolved)
	})

	t.Run("returns false when no candidate exists", func(t *testing.T) {
		exists := fakeExists()
		_, ok := resolveLiteralInclude("missing.php", "/root/src/main.php", "/root", exists)
		assert.False(t, ok)
	})

	t.Run("absolute literal must exist as-is", func(t *testing.T) {
		exists := fakeExists("/opt/shared/lib.php")
		resolved, ok := resolveLiteralInclude("/opt/shared/lib.php", "/root/src/main.php", "/root", exists)
		require.True(t, ok)
		assert.Equal(t, "/opt/shared/lib.php", resolved)
	})
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, MatchGlob("src/**/*.php", "src/a/b/Foo.php"))
	assert.True(t, MatchGlob("*.php", "Foo.php"))
	assert.False(t, MatchGlob("*.php", "Foo.txt"))
	assert.True(t, MatchGlob("{src,lib}/*.php", "lib/Foo.php"))
}

func TestMatchAnyGlob(t *testing.T) {
	patterns := []string{"vendor/**", "tests/**"}
	assert.True(t, MatchAnyGlob(patterns, "vendor/x/y.php"))
	assert.False(t, MatchAnyGlob(patterns, "src/main.php"))
}
