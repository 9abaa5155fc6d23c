package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// GitignoreParser parses .gitignore patterns and converts them into the
// doublestar-style exclude_patterns globs (§6's exclude_patterns schema
// key) that the driver's include_paths pre-scan skips. It does not itself
// match paths — pathutil.MatchAnyGlob does that once the patterns are
// folded into a Config's ExcludePatterns.
type GitignoreParser struct {
	patterns []GitignorePattern
}

// GitignorePattern is one parsed, un-negated or negated line.
type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

// NewGitignoreParser creates a new gitignore parser.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{patterns: make([]GitignorePattern, 0)}
}

// LoadGitignore loads patterns from <rootPath>/.gitignore. A missing file
// is not an error — most projects being packed have no .gitignore.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	gitignorePath := filepath.Join(rootPath, ".gitignore")

	file, err := os.Open(gitignorePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	return gp.scanAndParsePatterns(file)
}

// scanAndParsePatterns scans a file and parses each line as a pattern.
func (gp *GitignoreParser) scanAndParsePatterns(file *os.File) error {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if gp.shouldSkipLine(line) {
			continue
		}
		gp.patterns = append(gp.patterns, gp.parsePattern(line))
	}
	return scanner.Err()
}

func (gp *GitignoreParser) shouldSkipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

// AddPattern adds a single pattern line directly, bypassing LoadGitignore
// (for tests and callers building a pattern set from in-memory content).
func (gp *GitignoreParser) AddPattern(line string) {
	gp.patterns = append(gp.patterns, gp.parsePattern(line))
}

// parsePattern parses a single gitignore pattern line, extracting its
// negation/directory/absolute modifiers.
func (gp *GitignoreParser) parsePattern(line string) GitignorePattern {
	pattern := GitignorePattern{}
	line = gp.extractPatternModifiers(&pattern, line)
	pattern.Pattern = line
	return pattern
}

// extractPatternModifiers extracts and strips the !, trailing /, and
// leading / modifiers, returning the cleaned pattern string.
func (gp *GitignoreParser) extractPatternModifiers(pattern *GitignorePattern, line string) string {
	if strings.HasPrefix(line, "!") {
		pattern.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		pattern.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		pattern.Absolute = true
		line = line[1:]
	}
	return line
}

// GetExclusionPatterns returns gitignore patterns converted to the
// doublestar-style exclude_patterns glob form the driver's include_paths
// pre-scan matches against. Negation patterns are skipped: re-including a
// file the analyzer never excluded in the first place has no expression
// in exclude_patterns, which is a deny-only list.
func (gp *GitignoreParser) GetExclusionPatterns() []string {
	var exclusions []string
	for _, pattern := range gp.patterns {
		if pattern.Negate {
			continue
		}
		if globPattern := gp.convertToGlobPattern(pattern); globPattern != "" {
			exclusions = append(exclusions, globPattern)
		}
	}
	return exclusions
}

// convertToGlobPattern converts a gitignore pattern to a doublestar glob.
func (gp *GitignoreParser) convertToGlobPattern(pattern GitignorePattern) string {
	p := pattern.Pattern

	if pattern.Directory {
		if pattern.Absolute {
			return p + "/**"
		}
		return "**/" + p + "/**"
	}

	if pattern.Absolute {
		return p
	}
	return "**/" + p
}
