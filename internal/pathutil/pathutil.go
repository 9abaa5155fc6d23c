// Package pathutil implements the path & glob service (4.A): canonical-form
// normalization, absolute/relative conversion, literal-include resolution,
// and glob/double-star matching for the ingest pre-scanner.
//
// Architecture pattern: the rest of the pipeline stores paths in canonical
// relative form (forward slashes, no "." or ".." segments) and converts to
// absolute only at the filesystem boundary, mirroring how the indexing
// layer this package is descended from keeps absolute paths internally and
// converts to relative only at output boundaries.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Canonicalize collapses "." and ".." segments, removes duplicate
// separators, and normalizes backslashes to forward slashes, preserving
// whether the path was absolute or relative.
func Canonicalize(path string) string {
	if path == "" {
		return path
	}
	normalized := strings.ReplaceAll(path, "\\", "/")
	isAbs := strings.HasPrefix(normalized, "/")

	cleaned := filepath.ToSlash(filepath.Clean(normalized))
	if isAbs && !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// RelativeTo returns path expressed relative to root. Falls back to the
// canonicalized absolute path if it cannot be made relative (e.g. it lies
// outside root).
func RelativeTo(path, root string) string {
	if path == "" || root == "" {
		return Canonicalize(path)
	}
	if !filepath.IsAbs(path) {
		return Canonicalize(path)
	}

	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(root)

	rel, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil {
		return Canonicalize(path)
	}
	if rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "..\\") {
		return Canonicalize(path)
	}
	return Canonicalize(rel)
}

// AbsoluteOf resolves path against root, returning a canonical absolute
// path. If path is already absolute it is returned canonicalized.
func AbsoluteOf(path, root string) string {
	if filepath.IsAbs(path) {
		return Canonicalize(path)
	}
	return Canonicalize(filepath.Join(root, path))
}

// Join joins path segments and canonicalizes the result.
func Join(parts ...string) string {
	return Canonicalize(filepath.Join(parts...))
}

// existsFunc abstracts the filesystem existence check so tests can stub it
// without touching disk.
type existsFunc func(path string) bool

// osExists is the default existsFunc, backed by os.Stat.
func osExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const dirMagicConst = "__DIR__"

// ResolveLiteralInclude resolves a literal require/include argument
// (context) referenced from sourceFile against root, per 4.A:
//
//  1. source_dir/context
//  2. root/source_dir/context
//  3. root/context
//  4. current-working-dir/context
//
// context may contain the substring "__DIR__" (the directory of the
// including file) and may be absolute (leading "/") or relative. The first
// candidate that exists on the backing filesystem is returned; ok is false
// if none exist.
func ResolveLiteralInclude(context, sourceFile, root string) (resolved string, ok bool) {
	return resolveLiteralInclude(context, sourceFile, root, osExists)
}

func resolveLiteralInclude(context, sourceFile, root string, exists existsFunc) (string, bool) {
	sourceDir := filepath.Dir(sourceFile)
	expanded := strings.ReplaceAll(context, dirMagicConst, sourceDir)

	if filepath.IsAbs(expanded) {
		if exists(expanded) {
			return Canonicalize(expanded), true
		}
		// An absolute literal that doesn't exist still only has one
		// candidate: there is no relative fallback for it.
		return "", false
	}

	candidates := []string{
		filepath.Join(sourceDir, expanded),
		filepath.Join(root, sourceDir, expanded),
		filepath.Join(root, expanded),
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, expanded))
	}

	for _, candidate := range candidates {
		if exists(candidate) {
			return Canonicalize(candidate), true
		}
	}
	return "", false
}

// MatchGlob reports whether path matches pattern, supporting "*"
// (non-separator), "**" (any depth), "?", and "{a,b}" via doublestar. It is
// used by the ingest pre-scanner (include_paths/exclude_patterns in the
// configuration schema) and by the analyzer's vendor/** classification,
// never by the dependency resolver.
func MatchGlob(pattern, path string) bool {
	matched, err := doublestar.Match(pattern, filepath.ToSlash(path))
	if err != nil {
		return false
	}
	return matched
}

// MatchAnyGlob reports whether path matches any of patterns.
func MatchAnyGlob(patterns []string, path string) bool {
	for _, p := range patterns {
		if MatchGlob(p, path) {
			return true
		}
	}
	return false
}
