package phpast

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/stretchr/testify/require"
)

func parseSnippet(t *testing.T, src string) *Tree {
	t.Helper()
	p, err := NewParser()
	require.NoError(t, err)
	t.Cleanup(p.Close)
	tree, err := p.Parse([]byte(src), "snippet.php")
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

type kindSet map[NodeKind]bool

type recordingVisitor struct{ seen kindSet }

func (v recordingVisitor) Enter(kind NodeKind, node *sitter.Node) bool {
	v.seen[kind] = true
	return true
}
func (v recordingVisitor) Leave(kind NodeKind, node *sitter.Node) {}

func findFirstOfKind(tree *Tree, want NodeKind) *sitter.Node {
	var found *sitter.Node
	Walk(tree, finderVisitor{want: want, found: &found})
	return found
}

type finderVisitor struct {
	want  NodeKind
	found **sitter.Node
}

func (v finderVisitor) Enter(kind NodeKind, node *sitter.Node) bool {
	if *v.found != nil {
		return false
	}
	if kind == v.want {
		*v.found = node
		return false
	}
	return true
}
func (v finderVisitor) Leave(kind NodeKind, node *sitter.Node) {}

func TestClassifyDeclarations(t *testing.T) {
	tree := parseSnippet(t, `<?php
namespace App;
class Foo extends Bar implements Baz {
  public function hi() {}
}
`)
	seen := kindSet{}
	Walk(tree, recordingVisitor{seen: seen})
	require.True(t, seen[KindNamespace])
	require.True(t, seen[KindClass])
	require.True(t, seen[KindClassMethod])
}

func TestNameContextResolve(t *testing.T) {
	c := NewNameContext()
	c.SetNamespace("App\\Models")
	require.Equal(t, "App\\Models\\User", c.Resolve("User"))

	c.BindAlias("Base", "App\\Support\\Base")
	require.Equal(t, "App\\Support\\Base", c.Resolve("Base"))
	require.Equal(t, "App\\Support\\Base\\Helper", c.Resolve("Base\\Helper"))

	require.Equal(t, "Fully\\Qualified", c.Resolve("\\Fully\\Qualified"))
}

func TestReduceIncludeArgumentStringLiteral(t *testing.T) {
	tree := parseSnippet(t, `<?php require 'lib.php';`)
	node := findFirstOfKind(tree, KindStringLiteral)
	require.NotNil(t, node)
	val, ok := ReduceIncludeArgument(node, tree.Content)
	require.True(t, ok)
	require.Equal(t, "lib.php", val)
}

func TestReduceIncludeArgumentDirConcat(t *testing.T) {
	tree := parseSnippet(t, `<?php require __DIR__ . '/lib.php';`)
	node := findFirstOfKind(tree, KindConcatExpression)
	require.NotNil(t, node)
	val, ok := ReduceIncludeArgument(node, tree.Content)
	require.True(t, ok)
	require.Equal(t, "__DIR__/lib.php", val)
}

func TestReduceIncludeArgumentDynamicIsUnreducible(t *testing.T) {
	tree := parseSnippet(t, `<?php require $path . '/lib.php';`)
	node := findFirstOfKind(tree, KindConcatExpression)
	require.NotNil(t, node)
	_, ok := ReduceIncludeArgument(node, tree.Content)
	require.False(t, ok)
}
