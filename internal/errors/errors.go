// Package errors implements the error taxonomy from the error-handling
// design: fatal errors (ConfigurationError, StoreError, AmbiguousSymbol)
// abort the current command, warnings (ParseError, UnresolvedSymbol,
// UnresolvedInclude, CycleDetected) accumulate and are summarized at the
// end of a run.
package errors

import (
	"fmt"
	"time"
)

// Kind identifies which bucket of the error taxonomy an error belongs to.
type Kind string

const (
	KindConfiguration    Kind = "configuration"
	KindParse            Kind = "parse"
	KindUnresolvedSymbol Kind = "unresolved_symbol"
	KindUnresolvedInclude Kind = "unresolved_include"
	KindCycleDetected    Kind = "cycle_detected"
	KindStore            Kind = "store"
	KindAmbiguousSymbol  Kind = "ambiguous_symbol"
)

// Fatal reports whether an error of this kind must abort the current
// command rather than accumulate as a warning.
func (k Kind) Fatal() bool {
	switch k {
	case KindConfiguration, KindStore, KindAmbiguousSymbol:
		return true
	default:
		return false
	}
}

// ConfigurationError signals malformed configuration or a missing
// required field (e.g. "entry"). Always fatal.
type ConfigurationError struct {
	Field      string
	Underlying error
	Timestamp  time.Time
}

func NewConfigurationError(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Underlying)
}

func (e *ConfigurationError) Unwrap() error { return e.Underlying }

// ParseError signals that a single file failed to parse. The file is
// marked unparsable and the pipeline continues.
type ParseError struct {
	Path       string
	Line       int
	Underlying error
}

func NewParseError(path string, line int, err error) *ParseError {
	return &ParseError{Path: path, Line: line, Underlying: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d: %v", e.Path, e.Line, e.Underlying)
}

func (e *ParseError) Unwrap() error { return e.Underlying }

// UnresolvedSymbolError signals an edge that remains unresolved after the
// resolver fixpoint for a non-built-in symbol. Rate-limited to one per edge.
type UnresolvedSymbolError struct {
	EdgeID int64
	FQN    string
	Source string
}

func NewUnresolvedSymbolError(edgeID int64, fqn, source string) *UnresolvedSymbolError {
	return &UnresolvedSymbolError{EdgeID: edgeID, FQN: fqn, Source: source}
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q referenced from %s (edge %d)", e.FQN, e.Source, e.EdgeID)
}

// UnresolvedIncludeError signals a require/include whose argument could not
// be reduced to a literal path.
type UnresolvedIncludeError struct {
	EdgeID  int64
	Context string
	Source  string
}

func NewUnresolvedIncludeError(edgeID int64, context, source string) *UnresolvedIncludeError {
	return &UnresolvedIncludeError{EdgeID: edgeID, Context: context, Source: source}
}

func (e *UnresolvedIncludeError) Error() string {
	return fmt.Sprintf("unresolved include %q in %s (edge %d)", e.Context, e.Source, e.EdgeID)
}

// CycleDetectedError signals a cycle among extends/implements edges, which
// is structurally impossible at runtime. The load-order emitter still
// produces output by cutting a deterministic back edge.
type CycleDetectedError struct {
	Files []string
}

func NewCycleDetectedError(files []string) *CycleDetectedError {
	return &CycleDetectedError{Files: files}
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("inheritance cycle detected across %d files: %v", len(e.Files), e.Files)
}

// StoreError signals an I/O or constraint violation against the persistent
// store. Always fatal.
type StoreError struct {
	Operation  string
	Underlying error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Operation: op, Underlying: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Operation, e.Underlying)
}

func (e *StoreError) Unwrap() error { return e.Underlying }

// AmbiguousSymbolError signals that the autoload engine matched two
// different files defining the same FQN. Always fatal.
type AmbiguousSymbolError struct {
	FQN   string
	Files []string
}

func NewAmbiguousSymbolError(fqn string, files []string) *AmbiguousSymbolError {
	return &AmbiguousSymbolError{FQN: fqn, Files: files}
}

func (e *AmbiguousSymbolError) Error() string {
	return fmt.Sprintf("ambiguous symbol %q defined in multiple files: %v", e.FQN, e.Files)
}

// WarningSet accumulates non-fatal warnings across a pipeline run and
// de-duplicates by a caller-supplied key so each edge warns at most once,
// per the "one warning per edge" rate limit in the design.
type WarningSet struct {
	seen     map[string]struct{}
	warnings []error
}

func NewWarningSet() *WarningSet {
	return &WarningSet{seen: make(map[string]struct{})}
}

// Add records err under key if it has not already been recorded.
// Returns true if the warning was newly added.
func (w *WarningSet) Add(key string, err error) bool {
	if _, ok := w.seen[key]; ok {
		return false
	}
	w.seen[key] = struct{}{}
	w.warnings = append(w.warnings, err)
	return true
}

func (w *WarningSet) All() []error {
	return w.warnings
}

func (w *WarningSet) Len() int {
	return len(w.warnings)
}

// Summary renders all accumulated warnings as a single multi-line message.
func (w *WarningSet) Summary() string {
	if len(w.warnings) == 0 {
		return "no warnings"
	}
	s := fmt.Sprintf("%d warning(s):\n", len(w.warnings))
	for _, e := range w.warnings {
		s += "  - " + e.Error() + "\n"
	}
	return s
}
