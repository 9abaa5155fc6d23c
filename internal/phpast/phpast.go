// Package phpast implements the AST adapter (4.C): it wraps the
// tree-sitter PHP grammar, runs a name-resolution pass that attaches a
// fully-qualified form to every class-like reference, and exposes a
// visitor over a closed variant set instead of the duck-typed, dynamic
// child-field walk the source language's own tooling uses (§9).
package phpast

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	berrors "github.com/standardbeagle/phpbundle/internal/errors"
)

// NodeKind is the closed variant set the visitor dispatches on (§4.C).
// Anything tree-sitter produces outside this set falls through to a
// generic child-iteration branch rather than being special-cased.
type NodeKind int

const (
	KindOther NodeKind = iota
	KindNamespace
	KindUseStatement
	KindGroupUseStatement
	KindClass
	KindInterface
	KindTrait
	KindFunction
	KindClassMethod
	KindProperty
	KindNewExpression
	KindStaticCall
	KindClassConstFetch
	KindIncludeExpression
	KindConditional
	KindStringLiteral
	KindMagicConstDir
	KindConcatExpression
)

// IncludeVariant narrows KindIncludeExpression per §4.C.
type IncludeVariant int

const (
	IncludePlain IncludeVariant = iota
	IncludeOnce
	RequirePlain
	RequireOnce
)

// sitterKindToNodeKind maps tree-sitter-php grammar node kinds to the
// closed variant set. Anything absent from this table is KindOther.
var sitterKindToNodeKind = map[string]NodeKind{
	"namespace_definition":       KindNamespace,
	"namespace_use_declaration":  KindUseStatement,
	"namespace_use_group":        KindGroupUseStatement,
	"class_declaration":          KindClass,
	"interface_declaration":      KindInterface,
	"trait_declaration":          KindTrait,
	"function_definition":        KindFunction,
	"method_declaration":         KindClassMethod,
	"property_declaration":       KindProperty,
	"object_creation_expression": KindNewExpression,
	"scoped_call_expression":     KindStaticCall,
	"class_constant_access_expression": KindClassConstFetch,
	"include_expression":         KindIncludeExpression,
	"include_once_expression":    KindIncludeExpression,
	"require_expression":         KindIncludeExpression,
	"require_once_expression":    KindIncludeExpression,
	"if_statement":               KindConditional,
	"try_statement":              KindConditional,
	"string":                     KindStringLiteral,
}

var includeVariantByGrammarKind = map[string]IncludeVariant{
	"include_expression":      IncludePlain,
	"include_once_expression": IncludeOnce,
	"require_expression":      RequirePlain,
	"require_once_expression": RequireOnce,
}

// Classify returns the closed NodeKind for a raw tree-sitter grammar kind,
// and KindMagicConstDir specifically for the __DIR__ magic constant, which
// shares the grammar's "name" node type with ordinary identifiers.
func Classify(node *sitter.Node, content []byte) NodeKind {
	if node == nil {
		return KindOther
	}
	grammarKind := node.Kind()
	if grammarKind == "name" && GetNodeText(node, content) == "__DIR__" {
		return KindMagicConstDir
	}
	if grammarKind == "binary_expression" && isConcatenation(node, content) {
		return KindConcatExpression
	}
	if k, ok := sitterKindToNodeKind[grammarKind]; ok {
		return k
	}
	return KindOther
}

func isConcatenation(node *sitter.Node, content []byte) bool {
	// tree-sitter-php represents `.` concatenation as a binary_expression
	// whose operator child is the literal "."; there's no dedicated node
	// type, so string concatenation is detected the same way the extractor
	// this is descended from reads PHP's "concatenation" node.
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "." {
			return true
		}
	}
	return false
}

// IncludeVariantOf returns the include/require variant for a node
// classified as KindIncludeExpression.
func IncludeVariantOf(node *sitter.Node) IncludeVariant {
	if node == nil {
		return IncludePlain
	}
	return includeVariantByGrammarKind[node.Kind()]
}

// Tree wraps a parsed tree-sitter tree together with the source bytes it
// was parsed from, so visitor callbacks can read node text.
type Tree struct {
	Root    *sitter.Node
	Content []byte
	tree    *sitter.Tree
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Parser parses PHP source into a Tree. It is the sole concrete adapter
// this module ships for the external parser interface in §6
// (parse(bytes, filename) → AST or ParseError); other languages are out of
// scope.
type Parser struct {
	sitterParser *sitter.Parser
}

// NewParser constructs a Parser configured for the PHP grammar.
func NewParser() (*Parser, error) {
	sp := sitter.NewParser()
	language := sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	if err := sp.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("configure php grammar: %w", err)
	}
	return &Parser{sitterParser: sp}, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.sitterParser.Close()
}

// Parse parses content from filename. Malformed source fails with a
// ParseError carrying the file and the line nearest the first ERROR node
// tree-sitter produced, per §4.C; the caller (the file analyzer) logs it
// and marks the file skipped without aborting the pipeline.
func (p *Parser) Parse(content []byte, filename string) (*Tree, error) {
	tree := p.sitterParser.Parse(content, nil)
	if tree == nil {
		return nil, berrors.NewParseError(filename, 0, fmt.Errorf("parser returned no tree"))
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, berrors.NewParseError(filename, 0, fmt.Errorf("empty root node"))
	}
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, berrors.NewParseError(filename, line, fmt.Errorf("syntax error"))
	}
	return &Tree{Root: root, Content: content, tree: tree}, nil
}

func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPosition().Row) + 1
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPosition().Row) + 1
}

// GetNodeText extracts the source text spanned by node.
func GetNodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

// Position is a 1-based line/column location, matching the rest of the
// store's line numbering.
type Position struct {
	Line   int
	Column int
	Offset int
}

// PositionOf returns node's starting position.
func PositionOf(node *sitter.Node) Position {
	if node == nil {
		return Position{}
	}
	p := node.StartPosition()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Offset: int(node.StartByte())}
}

// FindChildByType returns the first direct child of the given grammar kind.
func FindChildByType(node *sitter.Node, grammarKind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == grammarKind {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns every direct child of the given grammar kind.
func FindChildrenByType(node *sitter.Node, grammarKind string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == grammarKind {
			out = append(out, child)
		}
	}
	return out
}
