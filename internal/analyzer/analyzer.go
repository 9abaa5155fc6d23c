// Package analyzer implements the file analyzer (4.D): it reads a file,
// classifies it, parses it with the AST adapter, and walks the tree to
// populate the Symbol and Dependency edge rows the resolver later links,
// following the same read → hash → extract → build pipeline the PHP
// extractor this is descended from uses.
package analyzer

import (
	"errors"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	berrors "github.com/standardbeagle/phpbundle/internal/errors"
	"github.com/standardbeagle/phpbundle/internal/phpast"
	"github.com/standardbeagle/phpbundle/internal/store"
)

// ErrRejected signals that Classify determined the file is not PHP
// source at all (wrong extension, no opening tag) and should be skipped
// entirely rather than stored.
var ErrRejected = errors.New("file rejected: not php source")

// Analyzer owns the PHP parser and drives single-file analysis against a
// Store. It is not safe for concurrent use by multiple goroutines sharing
// the same underlying tree-sitter parser.
type Analyzer struct {
	st     *store.Store
	parser *phpast.Parser
}

// New constructs an Analyzer over st.
func New(st *store.Store) (*Analyzer, error) {
	p, err := phpast.NewParser()
	if err != nil {
		return nil, err
	}
	return &Analyzer{st: st, parser: p}, nil
}

// Close releases the underlying parser.
func (a *Analyzer) Close() {
	a.parser.Close()
}

// Result is what AnalyzeFile reports back to the resolver driving it.
type Result struct {
	File     store.File
	Skipped  bool // vendor (skip_ast) file or parse failure; file stored but not walked
	ParseErr error
}

// AnalyzeFile reads path from disk, classifies it (§4.D step 2), upserts
// its File row, and — unless it is a vendor file or fails to parse —
// walks its AST to populate symbols and edges. If the stored row's
// content_hash already matches the file's current bytes, analysis is
// skipped entirely (§4.D step 1, §8 invariant 6).
func (a *Analyzer) AnalyzeFile(path, absolutePath string, isEntry bool) (Result, error) {
	raw, err := os.ReadFile(absolutePath)
	if err != nil {
		return Result{}, berrors.NewStoreError("read_file", err)
	}
	hash := store.ContentHash(raw)

	// §4.D step 1 / §8 invariant 6: unchanged content means no re-parse
	// and no rewrite of symbols/edges. Promoting is_entry still needs a
	// write (the invariant only protects the hash-unchanged case from
	// doing analysis work, not from recording a newly-discovered entry
	// point), so that one case falls through to the normal path below.
	if existing, found, err := a.st.GetFileByPath(path); err != nil {
		return Result{}, err
	} else if found && existing.ContentHash == hash && (existing.IsEntry || !isEntry) {
		return Result{File: existing, Skipped: existing.SkipAST}, nil
	}

	isVendor, reject := Classify(path, raw)
	if reject {
		return Result{}, ErrRejected
	}

	classKind := store.ClassKindScript
	skipAST := false
	switch {
	case isEntry:
		classKind = store.ClassKindEntry
	case isVendor:
		classKind = store.ClassKindVendor
		skipAST = true
	}

	stored, err := a.st.UpsertFile(store.File{
		Path:         path,
		AbsolutePath: absolutePath,
		ContentHash:  hash,
		RawContent:   raw,
		ClassKind:    classKind,
		SkipAST:      skipAST,
		IsEntry:      isEntry,
	})
	if err != nil {
		return Result{}, err
	}
	if skipAST {
		return Result{File: stored, Skipped: true}, nil
	}

	tree, parseErr := a.parser.Parse(raw, path)
	if parseErr != nil {
		stored.SkipAST = true
		stored, err = a.st.UpsertFile(stored)
		if err != nil {
			return Result{}, err
		}
		return Result{File: stored, Skipped: true, ParseErr: parseErr}, nil
	}
	defer tree.Close()

	v := &extractVisitor{content: raw, path: path, nameCtx: phpast.NewNameContext()}
	phpast.Walk(tree, v)

	if !isEntry && !isVendor && hasClassLikeSymbol(v.symbols) {
		stored.ClassKind = store.ClassKindClassBearing
		stored, err = a.st.UpsertFile(stored)
		if err != nil {
			return Result{}, err
		}
	}

	if err := a.st.ReplaceFileSymbolsAndEdges(stored.ID, v.symbols, v.edges); err != nil {
		return Result{}, err
	}
	return Result{File: stored}, nil
}

func hasClassLikeSymbol(symbols []store.Symbol) bool {
	for _, s := range symbols {
		switch s.Kind {
		case store.SymbolKindClass, store.SymbolKindInterface, store.SymbolKindTrait:
			return true
		}
	}
	return false
}

// classScope tracks the FQN and raw name of the class/interface/trait the
// visitor is currently inside, so methods and properties can build a
// qualified name and extends/implements/use-trait edges can be attached
// to the right source symbol.
type classScope struct {
	fqn       string
	shortName string
}

type extractVisitor struct {
	content []byte
	path    string
	nameCtx *phpast.NameContext

	classStack []classScope
	condDepth  int

	symbols []store.Symbol
	edges   []store.Edge
}

func (v *extractVisitor) inClass() (classScope, bool) {
	if len(v.classStack) == 0 {
		return classScope{}, false
	}
	return v.classStack[len(v.classStack)-1], true
}

func (v *extractVisitor) Enter(kind phpast.NodeKind, node *sitter.Node) bool {
	switch kind {
	case phpast.KindConditional:
		v.condDepth++
	case phpast.KindNamespace:
		if ns := phpast.FindChildByType(node, "namespace_name"); ns != nil {
			v.nameCtx.SetNamespace(qualifiedNameText(ns, v.content))
		}
	case phpast.KindUseStatement:
		// `use function` / `use const` imports bind no class-like names.
		if phpast.FindChildByType(node, "function") != nil || phpast.FindChildByType(node, "const") != nil {
			return false
		}
		v.extractUseStatement(node)
	case phpast.KindGroupUseStatement:
		v.extractGroupUseStatement(node)
	case phpast.KindClass, phpast.KindInterface, phpast.KindTrait:
		v.enterClassLike(kind, node)
	case phpast.KindFunction:
		v.addSymbol(store.SymbolKindFunction, node)
	case phpast.KindClassMethod:
		v.addMethodSymbol(node)
	case phpast.KindProperty:
		v.addPropertySymbols(node)
	case phpast.KindNewExpression:
		v.addRefEdge(store.EdgeKindNew, classRefOf(node, v.content), node)
	case phpast.KindStaticCall:
		v.addRefEdge(store.EdgeKindStaticCall, scopedRefOf(node, v.content), node)
	case phpast.KindClassConstFetch:
		v.addRefEdge(store.EdgeKindClassConstFetch, scopedRefOf(node, v.content), node)
	case phpast.KindIncludeExpression:
		v.addIncludeEdge(node)
	}
	return true
}

func (v *extractVisitor) Leave(kind phpast.NodeKind, node *sitter.Node) {
	switch kind {
	case phpast.KindConditional:
		v.condDepth--
	case phpast.KindClass, phpast.KindInterface, phpast.KindTrait:
		if len(v.classStack) > 0 {
			v.classStack = v.classStack[:len(v.classStack)-1]
		}
	}
}

func (v *extractVisitor) extractUseStatement(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "namespace_use_clause" {
			v.bindUseClause(child)
		}
	}
}

func (v *extractVisitor) bindUseClause(clause *sitter.Node) {
	var path string
	if q := phpast.FindChildByType(clause, "qualified_name"); q != nil {
		path = qualifiedNameText(q, v.content)
	} else if n := phpast.FindChildByType(clause, "name"); n != nil {
		path = phpast.GetNodeText(n, v.content)
	}
	if path == "" {
		return
	}

	alias := ""
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child != nil && phpast.GetNodeText(child, v.content) == "as" && i+1 < clause.ChildCount() {
			alias = phpast.GetNodeText(clause.Child(i+1), v.content)
			break
		}
	}
	if alias == "" {
		parts := strings.Split(path, "\\")
		alias = parts[len(parts)-1]
	}
	v.nameCtx.BindAlias(alias, path)
}

// extractGroupUseStatement handles `use A\B\{C, D};`: node is the
// namespace_use_group itself (the `{...}` clause list), and its base
// namespace (`A\B`) is a `namespace_name` sibling under the enclosing
// namespace_use_declaration, not a descendant of node.
func (v *extractVisitor) extractGroupUseStatement(node *sitter.Node) {
	base := ""
	if parent := node.Parent(); parent != nil {
		if ns := phpast.FindChildByType(parent, "namespace_name"); ns != nil {
			base = qualifiedNameText(ns, v.content)
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "namespace_use_clause" {
			continue
		}
		var suffix string
		if q := phpast.FindChildByType(child, "qualified_name"); q != nil {
			suffix = qualifiedNameText(q, v.content)
		} else if n := phpast.FindChildByType(child, "name"); n != nil {
			suffix = phpast.GetNodeText(n, v.content)
		}
		if suffix == "" {
			continue
		}
		full := suffix
		if base != "" {
			full = base + "\\" + suffix
		}
		parts := strings.Split(full, "\\")
		v.nameCtx.BindAlias(parts[len(parts)-1], full)
	}
}

func (v *extractVisitor) enterClassLike(kind phpast.NodeKind, node *sitter.Node) {
	nameNode := phpast.FindChildByType(node, "name")
	if nameNode == nil {
		v.classStack = append(v.classStack, classScope{})
		return
	}
	shortName := phpast.GetNodeText(nameNode, v.content)
	fqn := v.nameCtx.Resolve(shortName)

	symKind := store.SymbolKindClass
	switch kind {
	case phpast.KindInterface:
		symKind = store.SymbolKindInterface
	case phpast.KindTrait:
		symKind = store.SymbolKindTrait
	}
	v.symbols = append(v.symbols, store.Symbol{
		Kind:       symKind,
		ShortName:  shortName,
		FQN:        fqn,
		Namespace:  v.nameCtx.Namespace(),
		Visibility: store.VisibilityPublic,
	})
	v.classStack = append(v.classStack, classScope{fqn: fqn, shortName: shortName})

	if base := phpast.FindChildByType(node, "base_clause"); base != nil {
		for _, ref := range typeRefsOf(base, v.content) {
			v.edges = append(v.edges, store.Edge{Kind: store.EdgeKindExtends, TargetSymbol: v.nameCtx.Resolve(ref), Line: lineOf(base), IsConditional: v.condDepth > 0})
		}
	}
	if iface := phpast.FindChildByType(node, "class_interface_clause"); iface != nil {
		for _, ref := range typeRefsOf(iface, v.content) {
			v.edges = append(v.edges, store.Edge{Kind: store.EdgeKindImplements, TargetSymbol: v.nameCtx.Resolve(ref), Line: lineOf(iface), IsConditional: v.condDepth > 0})
		}
	}

	body := phpast.FindChildByType(node, "declaration_list")
	if body != nil {
		for _, use := range phpast.FindChildrenByType(body, "use_declaration") {
			for _, ref := range typeRefsOf(use, v.content) {
				v.edges = append(v.edges, store.Edge{Kind: store.EdgeKindUseTrait, TargetSymbol: v.nameCtx.Resolve(ref), Line: lineOf(use), IsConditional: v.condDepth > 0})
			}
		}
	}
}

func (v *extractVisitor) addSymbol(kind store.SymbolKind, node *sitter.Node) {
	nameNode := phpast.FindChildByType(node, "name")
	if nameNode == nil {
		return
	}
	shortName := phpast.GetNodeText(nameNode, v.content)
	v.symbols = append(v.symbols, store.Symbol{
		Kind:       kind,
		ShortName:  shortName,
		FQN:        v.nameCtx.Resolve(shortName),
		Namespace:  v.nameCtx.Namespace(),
		Visibility: store.VisibilityPublic,
	})
}

func (v *extractVisitor) addMethodSymbol(node *sitter.Node) {
	nameNode := phpast.FindChildByType(node, "name")
	if nameNode == nil {
		return
	}
	methodName := phpast.GetNodeText(nameNode, v.content)
	vis := visibilityOf(node, v.content)

	class, ok := v.inClass()
	fqn := methodName
	ns := v.nameCtx.Namespace()
	if ok && class.fqn != "" {
		fqn = class.fqn + "::" + methodName
	}
	v.symbols = append(v.symbols, store.Symbol{
		Kind:       store.SymbolKindMethod,
		ShortName:  methodName,
		FQN:        fqn,
		Namespace:  ns,
		Visibility: vis,
	})
}

func (v *extractVisitor) addPropertySymbols(node *sitter.Node) {
	vis := visibilityOf(node, v.content)
	class, ok := v.inClass()
	for _, prop := range phpast.FindChildrenByType(node, "property_element") {
		nameNode := phpast.FindChildByType(prop, "variable_name")
		if nameNode == nil {
			continue
		}
		shortName := phpast.GetNodeText(nameNode, v.content)
		fqn := shortName
		if ok && class.fqn != "" {
			fqn = class.fqn + "::" + shortName
		}
		v.symbols = append(v.symbols, store.Symbol{
			Kind:       store.SymbolKindProperty,
			ShortName:  shortName,
			FQN:        fqn,
			Namespace:  v.nameCtx.Namespace(),
			Visibility: vis,
		})
	}
}

func (v *extractVisitor) addRefEdge(kind store.EdgeKind, ref string, node *sitter.Node) {
	if ref == "" {
		return
	}
	target := v.resolveSelfParentStatic(ref)
	if target == "parent" {
		return
	}
	v.edges = append(v.edges, store.Edge{
		Kind:          kind,
		TargetSymbol:  target,
		Line:          lineOf(node),
		IsConditional: v.condDepth > 0,
	})
}

// resolveSelfParentStatic substitutes self/static for the enclosing class's
// FQN. parent is left as the literal keyword, and addRefEdge emits no edge
// for it: the parent class's file is already reached through the class's
// extends edge.
func (v *extractVisitor) resolveSelfParentStatic(ref string) string {
	switch ref {
	case "self", "static":
		if class, ok := v.inClass(); ok {
			return class.fqn
		}
		return ref
	case "parent":
		return "parent"
	default:
		return v.nameCtx.Resolve(ref)
	}
}

func (v *extractVisitor) addIncludeEdge(node *sitter.Node) {
	variant := phpast.IncludeVariantOf(node)
	kind := store.EdgeKindInclude
	switch variant {
	case phpast.IncludeOnce:
		kind = store.EdgeKindIncludeOnce
	case phpast.RequirePlain:
		kind = store.EdgeKindRequire
	case phpast.RequireOnce:
		kind = store.EdgeKindRequireOnce
	}

	arg := includeArgumentOf(node)
	context := "dynamic"
	if arg != nil {
		if reduced, ok := phpast.ReduceIncludeArgument(arg, v.content); ok {
			context = reduced
		}
	}
	v.edges = append(v.edges, store.Edge{
		Kind:          kind,
		Context:       context,
		Line:          lineOf(node),
		IsConditional: v.condDepth > 0,
	})
}

// includeArgumentOf returns the expression being required/included, i.e.
// the node's only non-keyword child.
func includeArgumentOf(node *sitter.Node) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "include", "include_once", "require", "require_once":
			continue
		default:
			return child
		}
	}
	return nil
}

// classRefOf extracts the class reference from a `new X(...)` expression.
func classRefOf(node *sitter.Node, content []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "qualified_name", "name":
			return qualifiedNameText(child, content)
		case "relative_scope":
			return phpast.GetNodeText(child, content)
		}
	}
	return ""
}

// scopedRefOf extracts the class reference from a `X::y` scoped access
// (static call or class-constant fetch): its first name-like child.
func scopedRefOf(node *sitter.Node, content []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "qualified_name", "name":
			return qualifiedNameText(child, content)
		case "relative_scope":
			return phpast.GetNodeText(child, content)
		case "::":
			return ""
		}
	}
	return ""
}

// typeRefsOf extracts every name-like reference from a base_clause,
// class_interface_clause, or trait use_declaration (which may list more
// than one type separated by commas).
func typeRefsOf(node *sitter.Node, content []byte) []string {
	var out []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "qualified_name", "name":
			out = append(out, qualifiedNameText(child, content))
		}
	}
	return out
}

// qualifiedNameText reconstructs a dotted (backslash-joined) name from a
// qualified_name/namespace_name node, the same way the extractor this is
// descended from walks nested namespace_name children.
func qualifiedNameText(node *sitter.Node, content []byte) string {
	if node.Kind() == "name" {
		return phpast.GetNodeText(node, content)
	}
	var parts []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "name":
			parts = append(parts, phpast.GetNodeText(child, content))
		case "namespace_name":
			if sub := qualifiedNameText(child, content); sub != "" {
				parts = append(parts, sub)
			}
		}
	}
	if len(parts) == 0 {
		return phpast.GetNodeText(node, content)
	}
	return strings.Join(parts, "\\")
}

func visibilityOf(node *sitter.Node, content []byte) store.Visibility {
	vis := store.VisibilityPublic
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "visibility_modifier":
			switch phpast.GetNodeText(child, content) {
			case "protected":
				vis = store.VisibilityProtected
			case "private":
				vis = store.VisibilityPrivate
			}
		case "abstract_modifier", "abstract":
			vis = store.VisibilityAbstract
		case "final_modifier", "final":
			vis = store.VisibilityFinal
		}
	}
	return vis
}

func lineOf(node *sitter.Node) int {
	return phpast.PositionOf(node).Line
}
