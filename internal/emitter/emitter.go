// Package emitter implements the load-order emitter (4.G): a thin driver
// over the store's closure traversal that additionally flags
// extends/implements cycles as warnings, since those are structurally
// impossible at runtime even though the closure walk tolerates them.
package emitter

import (
	"github.com/standardbeagle/phpbundle/internal/autoload"
	berrors "github.com/standardbeagle/phpbundle/internal/errors"
	"github.com/standardbeagle/phpbundle/internal/pathutil"
	"github.com/standardbeagle/phpbundle/internal/store"
)

// Emitter produces the ordered file list the packer consumes.
type Emitter struct {
	st   *store.Store
	root string
}

// New constructs an Emitter over st, rooted at root so always-loaded
// autoload-rule paths (absolute on disk) can be matched back to the
// store's root-relative File rows.
func New(st *store.Store, root string) *Emitter {
	return &Emitter{st: st, root: root}
}

// Emit returns the load order for entryPath's closure — always-loaded
// autoload `files` rules first (§3: "for files, loaded unconditionally";
// §4.E step 1: "do not participate in symbol resolution; recorded for
// the emitter to include"), then the entry's resolved-edge closure with
// any file already emitted as always-loaded elided — plus any warnings
// about inheritance cycles detected within the closure (§8 scenario 5).
func (e *Emitter) Emit(entryPath string) ([]store.File, []error, error) {
	entry, found, err := e.st.GetFileByPath(entryPath)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, berrors.NewStoreError("emit", errNoSuchEntry(entryPath))
	}

	closure, err := e.st.GetRequiredFilesClosure(entry.ID)
	if err != nil {
		return nil, nil, err
	}

	always, err := e.alwaysLoadedFiles()
	if err != nil {
		return nil, nil, err
	}

	ordered := prependUnique(always, closure)

	warnings, err := e.detectInheritanceCycles(ordered)
	if err != nil {
		return nil, nil, err
	}
	return ordered, warnings, nil
}

// alwaysLoadedFiles resolves every `files`-kind autoload rule to its
// store row. A rule whose target was never analyzed (e.g. the driver's
// pre-scan step didn't run) is skipped rather than erroring — an
// always-loaded file that isn't in the store yet contributes nothing to
// either resolution or the packed output.
func (e *Emitter) alwaysLoadedFiles() ([]store.File, error) {
	rules, err := e.st.GetAutoloadRulesOrdered()
	if err != nil {
		return nil, err
	}
	engine := autoload.New(e.root, rules)

	var out []store.File
	for _, abs := range engine.AlwaysLoadedFiles() {
		rel := pathutil.RelativeTo(abs, e.root)
		if f, ok, err := e.st.GetFileByPath(rel); err != nil {
			return nil, err
		} else if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// prependUnique returns always followed by the members of rest not
// already present in always, by file id.
func prependUnique(always, rest []store.File) []store.File {
	if len(always) == 0 {
		return rest
	}
	seen := make(map[int64]bool, len(always))
	out := make([]store.File, 0, len(always)+len(rest))
	for _, f := range always {
		seen[f.ID] = true
		out = append(out, f)
	}
	for _, f := range rest {
		if !seen[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// detectInheritanceCycles walks extends/implements edges among the
// closure's files looking for a cycle. Unlike the closure traversal
// itself (which silently cuts back edges to guarantee termination), a
// cycle through inheritance edges specifically is reported as a warning
// per §4.G, because no running program could actually exhibit one.
func (e *Emitter) detectInheritanceCycles(closure []store.File) ([]error, error) {
	inClosure := make(map[int64]bool, len(closure))
	for _, f := range closure {
		inClosure[f.ID] = true
	}

	adjacency := make(map[int64][]int64)
	for _, f := range closure {
		edges, err := e.st.GetEdgesOf(f.ID)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if !edge.Kind.IsInheritance() || !edge.IsResolved || edge.TargetFileID == nil {
				continue
			}
			if !inClosure[*edge.TargetFileID] {
				continue
			}
			adjacency[f.ID] = append(adjacency[f.ID], *edge.TargetFileID)
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[int64]int)
	pathByID := make(map[int64]string, len(closure))
	for _, f := range closure {
		pathByID[f.ID] = f.Path
	}

	var warnings []error
	var stack []int64
	var visit func(id int64) bool
	visit = func(id int64) bool {
		state[id] = visiting
		stack = append(stack, id)
		for _, next := range adjacency[id] {
			switch state[next] {
			case visiting:
				cycle := cycleFrom(stack, next, pathByID)
				warnings = append(warnings, berrors.NewCycleDetectedError(cycle))
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}
	for _, f := range closure {
		if state[f.ID] == unvisited {
			visit(f.ID)
		}
	}
	return warnings, nil
}

func cycleFrom(stack []int64, start int64, pathByID map[int64]string) []string {
	var out []string
	began := false
	for _, id := range stack {
		if id == start {
			began = true
		}
		if began {
			out = append(out, pathByID[id])
		}
	}
	return append(out, pathByID[start])
}

type errNoSuchEntry string

func (e errNoSuchEntry) Error() string { return "no such entry file: " + string(e) }
