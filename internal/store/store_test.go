package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertFilePreservesIsEntry(t *testing.T) {
	s := newTestStore(t)

	f, err := s.UpsertFile(File{Path: "main.php", AbsolutePath: "/root/main.php", ContentHash: 1, IsEntry: true, ClassKind: ClassKindEntry})
	require.NoError(t, err)

	replaced, err := s.UpsertFile(File{Path: "main.php", AbsolutePath: "/root/main.php", ContentHash: 2, IsEntry: false, ClassKind: ClassKindEntry})
	require.NoError(t, err)

	require.Equal(t, f.ID, replaced.ID)
	require.True(t, replaced.IsEntry, "is_entry must be preserved once true")
	require.Equal(t, uint64(2), replaced.ContentHash)
}

func TestReplaceFileSymbolsAndEdgesIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	f, err := s.UpsertFile(File{Path: "a.php", AbsolutePath: "/root/a.php", ContentHash: 1})
	require.NoError(t, err)

	symbols := []Symbol{{Kind: SymbolKindClass, ShortName: "Foo", FQN: "App\\Foo", Namespace: "App", Visibility: VisibilityPublic}}
	edges := []Edge{{Kind: EdgeKindRequire, Line: 1, Context: "b.php"}}

	require.NoError(t, s.ReplaceFileSymbolsAndEdges(f.ID, symbols, edges))
	require.NoError(t, s.ReplaceFileSymbolsAndEdges(f.ID, symbols, edges))

	stored, err := s.GetEdgesOf(f.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1, "re-analysis with identical symbols/edges must not duplicate rows")

	found, ok, err := s.FindFileBySymbol("App\\Foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.ID, found.ID)
}

func TestFindFileBySymbolAmbiguous(t *testing.T) {
	s := newTestStore(t)
	fa, err := s.UpsertFile(File{Path: "a.php", AbsolutePath: "/root/a.php", ContentHash: 1})
	require.NoError(t, err)
	fb, err := s.UpsertFile(File{Path: "b.php", AbsolutePath: "/root/b.php", ContentHash: 2})
	require.NoError(t, err)

	sym := Symbol{Kind: SymbolKindClass, ShortName: "Foo", FQN: "App\\Foo", Namespace: "App", Visibility: VisibilityPublic}
	_, err = s.AddSymbol(func() Symbol { sym.FileID = fa.ID; return sym }())
	require.NoError(t, err)
	_, err = s.AddSymbol(func() Symbol { sym.FileID = fb.ID; return sym }())
	require.NoError(t, err)

	_, _, err = s.FindFileBySymbol("App\\Foo")
	require.Error(t, err)
}

func TestResolveEdgeReferentialIntegrity(t *testing.T) {
	s := newTestStore(t)
	src, err := s.UpsertFile(File{Path: "main.php", AbsolutePath: "/root/main.php", ContentHash: 1})
	require.NoError(t, err)
	target, err := s.UpsertFile(File{Path: "lib.php", AbsolutePath: "/root/lib.php", ContentHash: 2})
	require.NoError(t, err)

	edgeID, err := s.AddEdge(Edge{SourceFileID: src.ID, Kind: EdgeKindRequire, Line: 1, Context: "lib.php"})
	require.NoError(t, err)

	unresolved, err := s.GetUnresolvedEdges()
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, s.ResolveEdge(edgeID, target.ID))

	edges, err := s.GetEdgesOf(src.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.True(t, edges[0].IsResolved)
	require.NotNil(t, edges[0].TargetFileID)
	require.Equal(t, target.ID, *edges[0].TargetFileID)

	stillGone, err := s.GetUnresolvedEdges()
	require.NoError(t, err)
	require.Empty(t, stillGone)
}

// TestLinearChainClosure covers §8 end-to-end scenario 1: main requires a,
// a requires b, b has no requires. Expected order: [b, a, main].
func TestLinearChainClosure(t *testing.T) {
	s := newTestStore(t)

	b, err := s.UpsertFile(File{Path: "b.php", AbsolutePath: "/root/b.php", ContentHash: 1})
	require.NoError(t, err)
	a, err := s.UpsertFile(File{Path: "a.php", AbsolutePath: "/root/a.php", ContentHash: 2})
	require.NoError(t, err)
	main, err := s.UpsertFile(File{Path: "main.php", AbsolutePath: "/root/main.php", ContentHash: 3, IsEntry: true})
	require.NoError(t, err)

	_, err = s.AddEdge(Edge{SourceFileID: a.ID, TargetFileID: &b.ID, Kind: EdgeKindRequire, Line: 1, Context: "b.php"})
	require.NoError(t, err)
	_, err = s.AddEdge(Edge{SourceFileID: main.ID, TargetFileID: &a.ID, Kind: EdgeKindRequire, Line: 1, Context: "a.php"})
	require.NoError(t, err)

	closure, err := s.GetRequiredFilesClosure(main.ID)
	require.NoError(t, err)
	require.Len(t, closure, 3)
	require.Equal(t, []string{"b.php", "a.php", "main.php"}, []string{closure[0].Path, closure[1].Path, closure[2].Path})
}

// TestCyclicClosureTerminates covers §8 end-to-end scenario 5: a and b
// require each other. The closure must contain both files exactly once and
// must terminate.
func TestCyclicClosureTerminates(t *testing.T) {
	s := newTestStore(t)

	a, err := s.UpsertFile(File{Path: "a.php", AbsolutePath: "/root/a.php", ContentHash: 1})
	require.NoError(t, err)
	b, err := s.UpsertFile(File{Path: "b.php", AbsolutePath: "/root/b.php", ContentHash: 2})
	require.NoError(t, err)

	_, err = s.AddEdge(Edge{SourceFileID: a.ID, TargetFileID: &b.ID, Kind: EdgeKindRequire, Line: 1, Context: "b.php"})
	require.NoError(t, err)
	_, err = s.AddEdge(Edge{SourceFileID: b.ID, TargetFileID: &a.ID, Kind: EdgeKindRequire, Line: 1, Context: "a.php"})
	require.NoError(t, err)

	closure, err := s.GetRequiredFilesClosure(a.ID)
	require.NoError(t, err)
	require.Len(t, closure, 2)

	seen := map[string]bool{}
	for _, f := range closure {
		require.False(t, seen[f.Path], "file must appear at most once in the closure")
		seen[f.Path] = true
	}
}

// TestEmptyEntryClosure covers the boundary behavior: an entry with no
// edges has a closure of exactly {entry}.
func TestEmptyEntryClosure(t *testing.T) {
	s := newTestStore(t)
	entry, err := s.UpsertFile(File{Path: "main.php", AbsolutePath: "/root/main.php", ContentHash: 1, IsEntry: true})
	require.NoError(t, err)

	closure, err := s.GetRequiredFilesClosure(entry.ID)
	require.NoError(t, err)
	require.Len(t, closure, 1)
	require.Equal(t, "main.php", closure[0].Path)
}

func TestAutoloadRulesOrderedByPrefixLengthThenPriority(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddAutoloadRule(AutoloadRule{Kind: AutoloadRuleKindPrefixMap, Prefix: "App\\", Path: "src", Priority: 0})
	require.NoError(t, err)
	_, err = s.AddAutoloadRule(AutoloadRule{Kind: AutoloadRuleKindPrefixMap, Prefix: "App\\Sub\\", Path: "src/Sub", Priority: 0})
	require.NoError(t, err)
	_, err = s.AddAutoloadRule(AutoloadRule{Kind: AutoloadRuleKindPrefixMap, Prefix: "App\\", Path: "src2", Priority: 5})
	require.NoError(t, err)

	rules, err := s.GetAutoloadRulesOrdered()
	require.NoError(t, err)
	require.Len(t, rules, 3)
	require.Equal(t, "App\\Sub\\", rules[0].Prefix, "longest matching prefix wins")
	require.Equal(t, "src2", rules[1].Path, "ties on prefix length break on priority desc")
}
