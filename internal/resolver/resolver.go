// Package resolver implements the dependency resolver (4.F): it drives
// the analyzer to a fixpoint, binding each unresolved edge to a target
// file via the autoload engine or the literal-include path resolver,
// following the seed-then-iterate loop §4.F specifies.
package resolver

import (
	"errors"
	"fmt"
	"path"

	"github.com/standardbeagle/phpbundle/internal/analyzer"
	"github.com/standardbeagle/phpbundle/internal/autoload"
	"github.com/standardbeagle/phpbundle/internal/builtins"
	berrors "github.com/standardbeagle/phpbundle/internal/errors"
	"github.com/standardbeagle/phpbundle/internal/pathutil"
	"github.com/standardbeagle/phpbundle/internal/store"
)

// Resolver drives the analyzer/store fixpoint loop for one pipeline run.
type Resolver struct {
	st       *store.Store
	an       *analyzer.Analyzer
	root     string
	warnings *berrors.WarningSet
}

// New constructs a Resolver rooted at root (the project directory
// relative include/autoload resolution is anchored to).
func New(st *store.Store, an *analyzer.Analyzer, root string) *Resolver {
	return &Resolver{st: st, an: an, root: root, warnings: berrors.NewWarningSet()}
}

// Warnings returns the accumulated non-fatal findings from the run.
func (r *Resolver) Warnings() *berrors.WarningSet { return r.warnings }

// Run seeds the pipeline with entryRelPath and iterates the fixpoint
// until no edge transitions from unresolved to resolved in a pass. The
// entry is (re-)analyzed unconditionally — AnalyzeFile's own
// content-hash check (§4.D step 1) makes this a no-op unless the
// entry's bytes changed since the last run, so a watch-triggered rerun
// still picks up edits to the entry file itself.
func (r *Resolver) Run(entryRelPath string) error {
	absEntry := pathutil.AbsoluteOf(entryRelPath, r.root)
	if _, err := r.an.AnalyzeFile(entryRelPath, absEntry, true); err != nil {
		return err
	}

	for {
		progressed, err := r.pass()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// Reanalyze forces AnalyzeFile to re-read relPath from disk, the way
// Watch picks up an on-disk edit to a file already sitting in the store:
// AnalyzeFile's content-hash check (§4.D step 1) means this only does
// real work — replacing the file's symbols/edges — when the bytes
// actually changed, inserting any new unresolved edges the next Run
// fixpoint pass then drives to resolution.
func (r *Resolver) Reanalyze(relPath string) error {
	abs := pathutil.AbsoluteOf(relPath, r.root)
	_, err := r.an.AnalyzeFile(relPath, abs, false)
	return err
}

func (r *Resolver) pass() (bool, error) {
	edges, err := r.st.GetUnresolvedEdges()
	if err != nil {
		return false, err
	}
	if len(edges) == 0 {
		return false, nil
	}

	rules, err := r.st.GetAutoloadRulesOrdered()
	if err != nil {
		return false, err
	}
	engine := autoload.New(r.root, rules)

	progressed := false
	for _, e := range edges {
		target, isExternal, ok, err := r.resolveTarget(e, engine)
		if err != nil {
			return false, err
		}
		if isExternal {
			if err := r.st.MarkEdgeExternallySatisfied(e.ID); err != nil {
				return false, err
			}
			progressed = true
			continue
		}
		if !ok {
			r.recordUnresolved(e)
			continue
		}

		relPath := pathutil.RelativeTo(target, r.root)
		f, found, err := r.st.GetFileByPath(relPath)
		if err != nil {
			return false, err
		}
		if !found {
			res, err := r.an.AnalyzeFile(relPath, target, false)
			if err != nil {
				if errors.Is(err, analyzer.ErrRejected) {
					r.recordUnresolved(e)
					continue
				}
				return false, err
			}
			f = res.File
		}
		if err := r.st.ResolveEdge(e.ID, f.ID); err != nil {
			return false, err
		}
		progressed = true
	}
	return progressed, nil
}

func (r *Resolver) recordUnresolved(e store.Edge) {
	key := fmt.Sprintf("edge:%d", e.ID)
	source := fmt.Sprintf("file %d", e.SourceFileID)
	if e.Kind.IsIncludeFamily() {
		r.warnings.Add(key, berrors.NewUnresolvedIncludeError(e.ID, e.Context, source))
	} else {
		r.warnings.Add(key, berrors.NewUnresolvedSymbolError(e.ID, e.TargetSymbol, source))
	}
}

// resolveTarget implements §4.F's resolve_target dispatch by edge kind.
// ok is false when no candidate could be found at all (recorded as a
// warning by the caller); isExternal is true for built-in symbols, which
// are neither resolved nor warned about.
func (r *Resolver) resolveTarget(e store.Edge, engine *autoload.Engine) (target string, isExternal, ok bool, err error) {
	src, found, err := r.st.GetFileByID(e.SourceFileID)
	if err != nil {
		return "", false, false, err
	}
	if !found {
		return "", false, false, nil
	}

	if e.Kind.IsIncludeFamily() {
		return r.resolveIncludeTarget(e, src)
	}
	return r.resolveSymbolTarget(e, engine)
}

func (r *Resolver) resolveIncludeTarget(e store.Edge, src store.File) (string, bool, bool, error) {
	if e.Context == "" || e.Context == "dynamic" || e.Context == "complex" {
		return "", false, false, nil
	}
	if resolved, ok := pathutil.ResolveLiteralInclude(e.Context, src.Path, r.root); ok {
		return resolved, false, true, nil
	}
	if f, ok, err := r.st.GetFileByPath(e.Context); err == nil && ok {
		return f.AbsolutePath, false, true, nil
	} else if err != nil {
		return "", false, false, err
	}
	if f, ok, err := r.st.FindFileByBasename(path.Base(e.Context)); err == nil && ok {
		return f.AbsolutePath, false, true, nil
	} else if err != nil {
		return "", false, false, err
	}
	return "", false, false, nil
}

func (r *Resolver) resolveSymbolTarget(e store.Edge, engine *autoload.Engine) (string, bool, bool, error) {
	fqn := e.TargetSymbol
	// The analyzer emits no `parent` edge (the parent class's file is
	// reached through the extends edge), and an empty target names nothing;
	// neither has anything to look up here, so such an edge is left
	// unresolved and the caller records a warning for it.
	if fqn == "parent" || fqn == "" {
		return "", false, false, nil
	}
	if builtins.IsBuiltinSymbol(fqn) {
		return "", true, false, nil
	}
	if f, ok, err := r.st.FindFileBySymbol(fqn); err != nil {
		return "", false, false, err
	} else if ok {
		return f.AbsolutePath, false, true, nil
	}
	if candidate, ok := engine.FindFileForSymbol(fqn); ok {
		return candidate, false, true, nil
	}
	return "", false, false, nil
}
