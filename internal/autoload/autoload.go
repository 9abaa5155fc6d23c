// Package autoload implements the autoload-rule engine (4.E): mapping a
// fully-qualified symbol name to a candidate source file via classmap,
// PSR-4 prefix-map, and legacy PSR-0 rules, grounded in the PHP resolver
// this is descended from but restructured around the typed rule rows the
// persistent store holds instead of ad hoc in-memory maps.
package autoload

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/standardbeagle/phpbundle/internal/store"
)

// Engine resolves FQNs to candidate file paths using a fixed rule set.
// It holds no store reference — the resolver refreshes rules from the
// store once per fixpoint pass and rebuilds the engine, since the rule
// table is written once at startup and read many times (§5).
type Engine struct {
	root      string
	classmap  []store.AutoloadRule
	prefixMap []store.AutoloadRule
	legacy    []store.AutoloadRule
	always    []store.AutoloadRule
	exists    func(string) bool
}

// New partitions rules by kind and orders prefix-map rules by
// (prefix length desc, priority desc) per §4.E step 3.
func New(root string, rules []store.AutoloadRule) *Engine {
	e := &Engine{root: root, exists: fileExists}
	for _, r := range rules {
		switch r.Kind {
		case store.AutoloadRuleKindClassmap:
			e.classmap = append(e.classmap, r)
		case store.AutoloadRuleKindPrefixMap:
			e.prefixMap = append(e.prefixMap, r)
		case store.AutoloadRuleKindLegacyPrefixMap:
			e.legacy = append(e.legacy, r)
		case store.AutoloadRuleKindFiles:
			e.always = append(e.always, r)
		}
	}
	sort.SliceStable(e.prefixMap, func(i, j int) bool {
		if len(e.prefixMap[i].Prefix) != len(e.prefixMap[j].Prefix) {
			return len(e.prefixMap[i].Prefix) > len(e.prefixMap[j].Prefix)
		}
		return e.prefixMap[i].Priority > e.prefixMap[j].Priority
	})
	return e
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// AlwaysLoadedFiles returns the absolute paths of the `files` autoload
// rules: files that do not participate in symbol resolution and are
// loaded unconditionally.
func (e *Engine) AlwaysLoadedFiles() []string {
	out := make([]string, 0, len(e.always))
	for _, r := range e.always {
		out = append(out, e.joinRoot(r.Path))
	}
	return out
}

// FindFileForSymbol resolves fqn to a candidate file path, trying
// classmap, then PSR-4 prefix-map, then legacy PSR-0 rules, first match
// wins. It does not consult the store — a candidate that doesn't define
// the expected FQN when parsed is the resolver's concern (§4.E's
// verification step), not this engine's.
func (e *Engine) FindFileForSymbol(fqn string) (string, bool) {
	for _, r := range e.classmap {
		if r.Prefix == fqn {
			return e.joinRoot(r.Path), true
		}
	}
	for _, r := range e.prefixMap {
		if !strings.HasPrefix(fqn, r.Prefix) {
			continue
		}
		suffix := strings.TrimPrefix(fqn, r.Prefix)
		suffix = strings.TrimPrefix(suffix, "\\")
		relPath := strings.ReplaceAll(suffix, "\\", string(filepath.Separator)) + ".php"
		candidate := filepath.Join(e.baseDir(r.Path), relPath)
		if e.exists(candidate) {
			return candidate, true
		}
	}
	for _, r := range e.legacy {
		if !strings.HasPrefix(fqn, r.Prefix) {
			continue
		}
		candidate := e.legacyCandidate(r, fqn)
		if e.exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// legacyCandidate implements PSR-0: for FQN "A\B\C", the path is
// base_dir/A/B/C.php, with underscores in the last segment (the
// historical PEAR-style separator) also converted to directory
// separators.
func (e *Engine) legacyCandidate(r store.AutoloadRule, fqn string) string {
	parts := strings.Split(fqn, "\\")
	last := parts[len(parts)-1]
	last = strings.ReplaceAll(last, "_", string(filepath.Separator))
	parts[len(parts)-1] = last
	relPath := strings.Join(parts, string(filepath.Separator)) + ".php"
	return filepath.Join(e.baseDir(r.Path), relPath)
}

func (e *Engine) baseDir(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.root, path)
}

func (e *Engine) joinRoot(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.root, path)
}
