package phpast

import sitter "github.com/tree-sitter/go-tree-sitter"

// Visitor receives enter/leave callbacks for every node in a Tree, keyed by
// the closed NodeKind variant set. Returning false from Enter skips the
// node's children (used by the analyzer to skip the clauses of a
// `use function` / `use const` import).
type Visitor interface {
	Enter(kind NodeKind, node *sitter.Node) bool
	Leave(kind NodeKind, node *sitter.Node)
}

// Walk performs a depth-first traversal of tree, calling v.Enter before
// descending into a node's children and v.Leave after. Node types outside
// the closed variant set still call Enter/Leave with KindOther so a
// Visitor's generic child-iteration fallback (§9) sees every node.
func Walk(tree *Tree, v Visitor) {
	if tree == nil || tree.Root == nil {
		return
	}
	walkNode(tree.Root, tree.Content, v)
}

func walkNode(node *sitter.Node, content []byte, v Visitor) {
	if node == nil {
		return
	}
	kind := Classify(node, content)
	descend := v.Enter(kind, node)
	if descend {
		for i := uint(0); i < node.ChildCount(); i++ {
			walkNode(node.Child(i), content, v)
		}
	}
	v.Leave(kind, node)
}

// NameContext tracks the current namespace and use-alias bindings needed to
// resolve a class-like reference to its fully-qualified form (§4.D point 4):
//   - a name beginning with a namespace separator is already absolute
//   - else if its first segment matches a use alias, substitute
//   - else prefix with the current namespace
type NameContext struct {
	namespace string
	aliases   map[string]string
}

// NewNameContext returns a context rooted at the global namespace.
func NewNameContext() *NameContext {
	return &NameContext{aliases: make(map[string]string)}
}

// SetNamespace updates the current namespace scope.
func (c *NameContext) SetNamespace(ns string) {
	c.namespace = ns
}

// Namespace returns the current namespace scope.
func (c *NameContext) Namespace() string {
	return c.namespace
}

// BindAlias records an alias → FQN binding introduced by a use statement.
// Only class-kind use bindings affect dependency resolution; function/const
// use bindings are not recorded here (§4.D).
func (c *NameContext) BindAlias(alias, fqn string) {
	c.aliases[alias] = fqn
}

// Resolve turns a possibly-unqualified class-like name into its FQN.
func (c *NameContext) Resolve(name string) string {
	if name == "" {
		return name
	}
	if name[0] == '\\' {
		return name[1:]
	}

	first := name
	rest := ""
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' {
			first = name[:i]
			rest = name[i:]
			break
		}
	}
	if fqn, ok := c.aliases[first]; ok {
		return fqn + rest
	}
	if c.namespace == "" {
		return name
	}
	return c.namespace + "\\" + name
}
