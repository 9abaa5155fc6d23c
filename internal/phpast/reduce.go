package phpast

import sitter "github.com/tree-sitter/go-tree-sitter"

// ReduceIncludeArgument folds a require/include argument expression into a
// literal context string by concatenating string literals and the __DIR__
// magic constant (kept as the literal token "__DIR__" for the path service
// to expand). ok is false if the expression is not reducible this way —
// e.g. it references a variable or a function call — in which case the
// caller records context = "dynamic" per §4.D step 3.
func ReduceIncludeArgument(node *sitter.Node, content []byte) (value string, ok bool) {
	if node == nil {
		return "", false
	}

	switch Classify(node, content) {
	case KindStringLiteral:
		return unquote(GetNodeText(node, content)), true
	case KindMagicConstDir:
		return dirMagicConst, true
	case KindConcatExpression:
		return reduceConcat(node, content)
	default:
		// A parenthesized expression wrapping a reducible form still
		// reduces; anything else (variables, calls, ternaries) does not.
		if node.ChildCount() == 1 {
			return ReduceIncludeArgument(node.Child(0), content)
		}
		return "", false
	}
}

const dirMagicConst = "__DIR__"

func reduceConcat(node *sitter.Node, content []byte) (string, bool) {
	var left, right *sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() == "." {
			continue
		}
		if left == nil {
			left = child
		} else {
			right = child
		}
	}
	if left == nil || right == nil {
		return "", false
	}
	lv, lok := ReduceIncludeArgument(left, content)
	if !lok {
		return "", false
	}
	rv, rok := ReduceIncludeArgument(right, content)
	if !rok {
		return "", false
	}
	return lv + rv, true
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
