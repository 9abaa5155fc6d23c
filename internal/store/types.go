// Package store implements the persistent store (4.B): typed tables for
// files, symbols, dependency edges, and autoload rules, backed by SQLite
// through database/sql, with the closure traversal and idempotent-upsert
// guarantees required by §3 and §8.
package store

import "fmt"

// ClassKind classifies a File row per §3.
type ClassKind string

const (
	ClassKindEntry          ClassKind = "entry"
	ClassKindClassBearing   ClassKind = "class-bearing"
	ClassKindScript         ClassKind = "script"
	ClassKindAutoloadConfig ClassKind = "autoload-config"
	ClassKindVendor         ClassKind = "vendor"
)

// File mirrors the File entity in §3.
type File struct {
	ID           int64
	Path         string // canonical relative form
	AbsolutePath string
	ContentHash  uint64
	RawContent   []byte // optional; retained for the emitter
	ClassKind    ClassKind
	SkipAST      bool
	ASTRoot      *int64 // nullable reference into the stored-AST table
	IsEntry      bool
}

// SymbolKind enumerates the Symbol.kind domain in §3.
type SymbolKind string

const (
	SymbolKindClass     SymbolKind = "class"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindTrait     SymbolKind = "trait"
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindConstant  SymbolKind = "constant"
	SymbolKindMethod    SymbolKind = "method"
	SymbolKindProperty  SymbolKind = "property"
)

// Visibility enumerates Symbol.visibility in §3.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityAbstract  Visibility = "abstract"
	VisibilityFinal     Visibility = "final"
)

// Symbol mirrors the Symbol entity in §3.
type Symbol struct {
	ID                int64
	FileID            int64
	Kind              SymbolKind
	ShortName         string
	FQN               string
	Namespace         string
	Visibility        Visibility
	ParentSymbolID    *int64 // methods/properties
}

// EdgeKind enumerates Dependency edge.kind in §3.
type EdgeKind string

const (
	EdgeKindRequire         EdgeKind = "require"
	EdgeKindRequireOnce     EdgeKind = "require-once"
	EdgeKindInclude         EdgeKind = "include"
	EdgeKindIncludeOnce     EdgeKind = "include-once"
	EdgeKindExtends         EdgeKind = "extends"
	EdgeKindImplements      EdgeKind = "implements"
	EdgeKindUseTrait        EdgeKind = "use-trait"
	EdgeKindUseClass        EdgeKind = "use-class"
	EdgeKindNew             EdgeKind = "new"
	EdgeKindStaticCall      EdgeKind = "static-call"
	EdgeKindClassConstFetch EdgeKind = "class-const-fetch"
)

// IsIncludeFamily reports whether the edge kind is require/include family,
// which resolves through the path service instead of the autoload engine.
func (k EdgeKind) IsIncludeFamily() bool {
	switch k {
	case EdgeKindRequire, EdgeKindRequireOnce, EdgeKindInclude, EdgeKindIncludeOnce:
		return true
	default:
		return false
	}
}

// IsInheritance reports whether a cycle through this edge kind is
// structurally impossible at runtime (§8 scenario 5, §4.G).
func (k EdgeKind) IsInheritance() bool {
	return k == EdgeKindExtends || k == EdgeKindImplements
}

// Edge mirrors the Dependency edge entity in §3.
type Edge struct {
	ID             int64
	SourceFileID   int64
	TargetSymbol   string // nullable FQN; empty means null
	TargetFileID   *int64 // nullable
	Kind           EdgeKind
	Line           int
	IsConditional  bool
	IsResolved     bool
	Context        string // literal include argument or empty
	ExternallySatisfied bool // bound to a host-runtime builtin, not a file
}

// AutoloadRuleKind enumerates Autoload rule.kind in §3.
type AutoloadRuleKind string

const (
	AutoloadRuleKindPrefixMap       AutoloadRuleKind = "prefix-map"
	AutoloadRuleKindLegacyPrefixMap AutoloadRuleKind = "legacy-prefix-map"
	AutoloadRuleKindClassmap        AutoloadRuleKind = "classmap"
	AutoloadRuleKindFiles           AutoloadRuleKind = "files"
)

// AutoloadRule mirrors the Autoload rule entity in §3.
type AutoloadRule struct {
	ID       int64
	Kind     AutoloadRuleKind
	Prefix   string // nullable; empty for classmap/files entries addressed by Path alone
	Path     string // directory or file
	Priority int
}

// ASTNode mirrors the optional Stored AST node entity in §3.
type ASTNode struct {
	ID              int64
	FileID          int64
	ParentID        *int64 // nullable; root has a virtual parent
	NodeType        string
	FQCN            string // nullable, populated by the name resolver
	PositionInParent int
	StartLine       int
	EndLine         int
	Attributes      []byte // opaque JSON-encoded extras
}

// ErrDuplicatePath is returned when an insert violates the File.path
// uniqueness invariant through a path outside of upsert_file's semantics.
type ErrDuplicatePath struct{ Path string }

func (e ErrDuplicatePath) Error() string {
	return fmt.Sprintf("duplicate file path: %s", e.Path)
}
