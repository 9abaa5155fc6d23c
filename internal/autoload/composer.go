package autoload

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/standardbeagle/phpbundle/internal/debug"
	"github.com/standardbeagle/phpbundle/internal/store"
)

// composerManifest mirrors the subset of composer.json's schema the
// bundler cares about, the way the resolver this is descended from reads
// it with encoding/json rather than a hand-rolled scanner.
type composerManifest struct {
	Autoload struct {
		PSR4     map[string]string `json:"psr-4"`
		PSR0     map[string]string `json:"psr-0"`
		ClassMap []string          `json:"classmap"`
		Files    []string          `json:"files"`
	} `json:"autoload"`
}

// LoadComposerRules reads composerJSONPath (typically "<root>/composer.json")
// and converts its autoload section into store rule rows. A missing file
// is not an error — most projects being bundled have no composer.json —
// and a malformed one is logged and otherwise ignored rather than
// aborting the pipeline over a corrupt manifest.
func LoadComposerRules(composerJSONPath string) []store.AutoloadRule {
	raw, err := os.ReadFile(composerJSONPath)
	if err != nil {
		return nil
	}

	var manifest composerManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		debug.LogAutoload("failed to parse %s: %v", composerJSONPath, err)
		return nil
	}

	var rules []store.AutoloadRule
	for prefix, dir := range manifest.Autoload.PSR4 {
		rules = append(rules, store.AutoloadRule{Kind: store.AutoloadRuleKindPrefixMap, Prefix: prefix, Path: dir})
	}
	for prefix, dir := range manifest.Autoload.PSR0 {
		rules = append(rules, store.AutoloadRule{Kind: store.AutoloadRuleKindLegacyPrefixMap, Prefix: prefix, Path: dir})
	}
	for _, entry := range manifest.Autoload.ClassMap {
		rules = append(rules, store.AutoloadRule{Kind: store.AutoloadRuleKindClassmap, Path: entry})
	}
	for _, file := range manifest.Autoload.Files {
		rules = append(rules, store.AutoloadRule{Kind: store.AutoloadRuleKindFiles, Path: file})
	}
	return rules
}

// FindComposerJSON looks for composer.json directly under root, the only
// location composer itself ever reads it from.
func FindComposerJSON(root string) (string, bool) {
	path := filepath.Join(root, "composer.json")
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, true
	}
	return "", false
}
