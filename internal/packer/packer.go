// Package packer implements the emitter adapter boundary (4.H): it
// consumes the ordered file list the load-order emitter produces and
// turns it into the packed output artifact. The core only requires that
// resolved require/include edges be elided to avoid double-loading; how
// the bytes are assembled is this package's concern, not the core's.
package packer

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/standardbeagle/phpbundle/internal/store"
)

// Packer turns an ordered file list into a single artifact.
type Packer interface {
	Pack(files []store.File, edgesOf func(fileID int64) ([]store.Edge, error)) ([]byte, error)
}

// ConcatPacker is the default implementation: it concatenates each
// file's PHP body in load order inside one opening tag, dropping the
// lines of any require/include edge the resolver has already resolved,
// so the generated file doesn't load those targets a second time through
// the runtime's own includes. Whether the target file is among the packed
// files is not checked.
type ConcatPacker struct {
	// StripOpeningTags controls whether each file's own `<?php` opening
	// tag (and any closing `?>`) is removed before concatenation; the
	// packed artifact supplies a single opening tag instead.
	StripOpeningTags bool

	// RemoveComments implements the `optimization.remove_comments` config
	// key (§6): lines that start with a `//` or `#` comment are dropped and
	// `/* */` comments that open and close on one line are removed from
	// each file's body before concatenation (see stripComments).
	RemoveComments bool

	// RemoveWhitespace implements `optimization.remove_whitespace` (§6):
	// blank lines and trailing whitespace are dropped from each file's
	// body before concatenation.
	RemoveWhitespace bool

	// Runtime holds the `runtime.*` config keys (§6), passed through to
	// the packed artifact's preamble as `define()` constant definitions so
	// runtime-dependent code in the bundle can read them as constants.
	Runtime map[string]string
}

// NewConcatPacker returns the default packer configuration.
func NewConcatPacker() *ConcatPacker {
	return &ConcatPacker{StripOpeningTags: true}
}

var (
	lineCommentRe  = regexp.MustCompile(`^\s*(//|#)`)
	blockCommentRe = regexp.MustCompile(`/\*.*?\*/`)
)

func (p *ConcatPacker) Pack(files []store.File, edgesOf func(fileID int64) ([]store.Edge, error)) ([]byte, error) {
	var out bytes.Buffer
	out.WriteString("<?php\n")
	out.Write(p.runtimePreamble())

	for _, f := range files {
		elidedLines, err := p.elidedLines(f.ID, edgesOf)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&out, "// ---- %s ----\n", f.Path)
		body := stripLines(f.RawContent, elidedLines, p.StripOpeningTags)
		if p.RemoveComments {
			body = stripComments(body)
		}
		if p.RemoveWhitespace {
			body = stripBlankLines(body)
		}
		out.Write(body)
		out.WriteString("\n")
	}
	return out.Bytes(), nil
}

// runtimePreamble renders the `runtime.*` config keys (§6) as `define()`
// calls so bundled code can read them the way it would read values the
// host environment set before the original multi-file program ran.
// Keys are sorted for deterministic output.
func (p *ConcatPacker) runtimePreamble() []byte {
	if len(p.Runtime) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p.Runtime))
	for k := range p.Runtime {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&out, "define(%q, %q);\n", "RUNTIME_"+strings.ToUpper(k), p.Runtime[k])
	}
	return out.Bytes()
}

// stripComments drops whole-line `//`/`#` comments and removes single-line
// `/* ... */` block comments. Multi-line block comments are left intact
// since a naive per-line regex can't safely span them without risking a
// false match inside a string literal.
func stripComments(content []byte) []byte {
	lines := strings.Split(string(content), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if lineCommentRe.MatchString(l) {
			continue
		}
		out = append(out, blockCommentRe.ReplaceAllString(l, ""))
	}
	return []byte(strings.Join(out, "\n"))
}

// stripBlankLines drops lines that are empty once trailing whitespace is
// trimmed.
func stripBlankLines(content []byte) []byte {
	lines := strings.Split(string(content), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimRight(l, " \t\r")
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return []byte(strings.Join(out, "\n"))
}

// elidedLines returns the set of 1-based line numbers to drop: the line of
// every resolved require/include-family edge of this file. Whether the
// edge's target file is present in the pack is not checked.
func (p *ConcatPacker) elidedLines(fileID int64, edgesOf func(int64) ([]store.Edge, error)) (map[int]bool, error) {
	edges, err := edgesOf(fileID)
	if err != nil {
		return nil, err
	}
	lines := make(map[int]bool)
	for _, e := range edges {
		if e.Kind.IsIncludeFamily() && e.IsResolved {
			lines[e.Line] = true
		}
	}
	return lines, nil
}

func stripLines(content []byte, elided map[int]bool, stripTags bool) []byte {
	var out bytes.Buffer
	line := 1
	start := 0
	emit := func(lineBytes []byte, lineNo int) {
		if elided[lineNo] {
			return
		}
		text := lineBytes
		if stripTags {
			text = stripPHPTags(text)
		}
		out.Write(text)
		out.WriteString("\n")
	}
	for i, b := range content {
		if b == '\n' {
			emit(content[start:i], line)
			start = i + 1
			line++
		}
	}
	if start < len(content) {
		emit(content[start:], line)
	}
	return out.Bytes()
}

func stripPHPTags(line []byte) []byte {
	s := string(line)
	s = strings.ReplaceAll(s, "<?php", "")
	s = strings.ReplaceAll(s, "<?=", "echo ")
	s = strings.ReplaceAll(s, "?>", "")
	return []byte(s)
}
