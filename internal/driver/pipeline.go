// Package driver wires the core components (store, analyzer, resolver,
// autoload engine, emitter, packer) into the four commands the CLI
// exposes: a thin orchestration layer over the dependency-graph engine.
package driver

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/phpbundle/internal/analyzer"
	"github.com/standardbeagle/phpbundle/internal/autoload"
	"github.com/standardbeagle/phpbundle/internal/config"
	"github.com/standardbeagle/phpbundle/internal/debug"
	"github.com/standardbeagle/phpbundle/internal/emitter"
	"github.com/standardbeagle/phpbundle/internal/errors"
	"github.com/standardbeagle/phpbundle/internal/packer"
	"github.com/standardbeagle/phpbundle/internal/pathutil"
	"github.com/standardbeagle/phpbundle/internal/resolver"
	"github.com/standardbeagle/phpbundle/internal/store"
)

// Pipeline owns the open store and the components layered over it for one
// driver invocation (§5: one store per invocation, opened at pipeline
// start, closed at end).
type Pipeline struct {
	Config *config.Config
	Store  *store.Store
	an     *analyzer.Analyzer
	res    *resolver.Resolver
}

// Open loads autoload rules (config-embedded plus composer.json, if
// present) into a freshly opened store and constructs the analyzer and
// resolver over it.
func Open(cfg *config.Config) (*Pipeline, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := seedAutoloadRules(st, cfg); err != nil {
		_ = st.Close()
		return nil, err
	}

	an, err := analyzer.New(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &Pipeline{
		Config: cfg,
		Store:  st,
		an:     an,
		res:    resolver.New(st, an, cfg.Root),
	}, nil
}

// seedAutoloadRules loads the config's embedded `autoload` block and, per
// SPEC_FULL's composer.json supplement, a project-root composer.json's
// autoload section, into the store's read-only rule table. Rules are
// created once at startup (§3 lifecycle): a rule already stored by an
// earlier Open against the same database path is not inserted again.
func seedAutoloadRules(st *store.Store, cfg *config.Config) error {
	var rules []store.AutoloadRule
	for _, spec := range cfg.Autoload {
		rules = append(rules, store.AutoloadRule{
			Kind:     store.AutoloadRuleKind(spec.Kind),
			Prefix:   spec.Prefix,
			Path:     spec.Path,
			Priority: spec.Priority,
		})
	}

	if composerPath, ok := autoload.FindComposerJSON(cfg.Root); ok {
		rules = append(rules, autoload.LoadComposerRules(composerPath)...)
	}
	if cfg.ExternalAutoloadConfig != "" {
		rules = append(rules, autoload.LoadComposerRules(cfg.ExternalAutoloadConfig)...)
	}

	store.SortAutoloadRules(rules)
	existing, err := st.GetAutoloadRulesOrdered()
	if err != nil {
		return err
	}
	stored := make(map[store.AutoloadRule]bool, len(existing))
	for _, r := range existing {
		r.ID = 0
		stored[r] = true
	}
	for _, r := range rules {
		if stored[r] {
			continue
		}
		stored[r] = true
		if _, err := st.AddAutoloadRule(r); err != nil {
			return err
		}
	}
	debug.LogAutoload("seeded %d autoload rule(s)", len(rules))
	return nil
}

// Close releases the analyzer and store.
func (p *Pipeline) Close() error {
	p.an.Close()
	return p.Store.Close()
}

// Analyze pre-scans cfg.IncludePaths, then runs the fixpoint resolver
// from entryRelPath, and returns the accumulated warnings (§4.F / §7:
// warnings never abort the pipeline).
func (p *Pipeline) Analyze(entryRelPath string) (*errors.WarningSet, error) {
	if err := p.analyzeIncludePaths(); err != nil {
		return nil, err
	}
	if err := p.analyzeAlwaysLoadedFiles(); err != nil {
		return nil, err
	}
	if err := p.res.Run(entryRelPath); err != nil {
		return nil, err
	}
	return p.res.Warnings(), nil
}

// analyzeAlwaysLoadedFiles eagerly analyzes every `files`-kind autoload
// rule (§3: "for files, loaded unconditionally") so each has a File row
// by the time Emit runs and can prepend them ahead of the entry's
// closure (§4.E step 1: "do not participate in symbol resolution;
// recorded for the emitter to include").
func (p *Pipeline) analyzeAlwaysLoadedFiles() error {
	rules, err := p.Store.GetAutoloadRulesOrdered()
	if err != nil {
		return err
	}
	engine := autoload.New(p.Config.Root, rules)
	for _, abs := range engine.AlwaysLoadedFiles() {
		rel := pathutil.RelativeTo(abs, p.Config.Root)
		if _, ok, err := p.Store.GetFileByPath(rel); err != nil {
			return err
		} else if ok {
			continue
		}
		if _, err := p.an.AnalyzeFile(rel, abs, false); err != nil {
			if stderrors.Is(err, analyzer.ErrRejected) {
				continue
			}
			return err
		}
	}
	return nil
}

// analyzeIncludePaths indexes every file matched by cfg.IncludePaths's
// glob patterns (§4.A, §6) ahead of the fixpoint, the way a classmap
// scanner front-loads symbol discovery: a pre-scanned file's symbols
// become reachable through the store's own find_file_by_symbol lookup
// (§4.F) even when no autoload rule covers its namespace, e.g. a CLI
// script invoked only via a shell wrapper. Pre-scan failures that reject
// a file as non-PHP are not errors; anything else aborts the pipeline.
func (p *Pipeline) analyzeIncludePaths() error {
	if len(p.Config.IncludePaths) == 0 {
		return nil
	}
	matches, err := p.ScanIncludePaths()
	if err != nil {
		return err
	}
	for _, rel := range matches {
		if _, ok, err := p.Store.GetFileByPath(rel); err != nil {
			return err
		} else if ok {
			continue
		}
		abs := pathutil.AbsoluteOf(rel, p.Config.Root)
		if _, err := p.an.AnalyzeFile(rel, abs, false); err != nil {
			if stderrors.Is(err, analyzer.ErrRejected) {
				continue
			}
			return err
		}
	}
	return nil
}

// Emit runs the load-order emitter over entryRelPath's closure.
func (p *Pipeline) Emit(entryRelPath string) ([]store.File, []error, error) {
	return emitter.New(p.Store, p.Config.Root).Emit(entryRelPath)
}

// Pack runs Analyze then Emit then the packer, writing the packed
// artifact to cfg.Output (resolved against cfg.Root). Returns the
// analyze-phase warnings and any inheritance-cycle warnings the emitter
// raised, concatenated in that order.
func (p *Pipeline) Pack() ([]error, error) {
	entry := p.Config.Entry
	analyzeWarnings, err := p.Analyze(entry)
	if err != nil {
		return nil, err
	}

	files, emitWarnings, err := p.Emit(entry)
	if err != nil {
		return nil, err
	}

	pk := packer.NewConcatPacker()
	pk.RemoveComments = p.Config.Optimization.RemoveComments
	pk.RemoveWhitespace = p.Config.Optimization.RemoveWhitespace
	pk.Runtime = p.Config.Runtime
	out, err := pk.Pack(files, p.Store.GetEdgesOf)
	if err != nil {
		return nil, err
	}

	outPath := config.ResolveOutputPath(p.Config)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, errors.NewStoreError("write_output", err)
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return nil, errors.NewStoreError("write_output", err)
	}

	all := append([]error{}, analyzeWarnings.All()...)
	all = append(all, emitWarnings...)
	return all, nil
}

// Watch reruns Pack whenever a file under cfg.Root changes. The changed
// path is forced through Reanalyze before the rerun, since the fixpoint
// alone only revisits edges already sitting unresolved in the store and
// would otherwise never notice that an already-resolved file's content
// changed on disk; Reanalyze's underlying AnalyzeFile call still skips
// the actual parse/replace work when the content_hash it reads back
// matches what the store already has (§3 lifecycle, §8 invariant 6).
// onPack is called after every successful pack, including the first,
// with the run's warnings. Watch blocks until ctx-less cancellation via
// a send on stop, or the watcher itself errors.
func (p *Pipeline) Watch(stop <-chan struct{}, onPack func([]error, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	if err := addRecursive(w, p.Config.Root); err != nil {
		return err
	}

	run := func() {
		warnings, err := p.Pack()
		onPack(warnings, err)
	}
	run()

	for {
		select {
		case <-stop:
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			debug.LogResolve("watch error: %v", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isPHPPath(ev.Name) {
				continue
			}
			rel := pathutil.RelativeTo(ev.Name, p.Config.Root)
			if err := p.res.Reanalyze(rel); err != nil {
				debug.LogResolve("watch: reanalyze %s: %v", rel, err)
			}
			debug.LogResolve("watch: %s changed, re-packing", ev.Name)
			run()
		}
	}
}

func isPHPPath(path string) bool {
	switch filepath.Ext(path) {
	case ".php", ".phtml", ".php3", ".php4", ".php5", ".phar":
		return true
	default:
		return false
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || !info.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

// ScanIncludePaths pre-scans cfg.IncludePaths (§6, §4.A) for files the
// driver should analyze even if the fixpoint never reaches them through a
// resolved edge — e.g. CLI scripts invoked only via a shell wrapper. Files
// matching ExcludePatterns are skipped.
func (p *Pipeline) ScanIncludePaths() ([]string, error) {
	var matched []string
	err := filepath.Walk(p.Config.Root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info == nil || info.IsDir() {
			return nil
		}
		rel := pathutil.RelativeTo(path, p.Config.Root)
		if !pathutil.MatchAnyGlob(p.Config.IncludePaths, rel) {
			return nil
		}
		if pathutil.MatchAnyGlob(p.Config.ExcludePatterns, rel) {
			return nil
		}
		matched = append(matched, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan include_paths: %w", err)
	}
	return matched, nil
}
