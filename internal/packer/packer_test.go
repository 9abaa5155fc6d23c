package packer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/phpbundle/internal/store"
)

func TestConcatPackerElidesResolvedRequireLine(t *testing.T) {
	files := []store.File{
		{ID: 2, Path: "b.php", RawContent: []byte("<?php\nfunction b() {}\n")},
		{ID: 1, Path: "a.php", RawContent: []byte("<?php\nrequire 'b.php';\nfunction a() {}\n")},
	}
	edgesByFile := map[int64][]store.Edge{
		1: {{Kind: store.EdgeKindRequire, Line: 2, IsResolved: true}},
	}

	p := NewConcatPacker()
	out, err := p.Pack(files, func(id int64) ([]store.Edge, error) { return edgesByFile[id], nil })
	require.NoError(t, err)

	text := string(out)
	require.True(t, strings.Contains(text, "function b() {}"))
	require.True(t, strings.Contains(text, "function a() {}"))
	require.False(t, strings.Contains(text, "require 'b.php';"))
}

func TestConcatPackerStripsOpeningTags(t *testing.T) {
	files := []store.File{{ID: 1, Path: "a.php", RawContent: []byte("<?php\necho 1;\n")}}
	p := NewConcatPacker()
	out, err := p.Pack(files, func(int64) ([]store.Edge, error) { return nil, nil })
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(out), "<?php"))
}
