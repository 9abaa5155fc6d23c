package config

import "path/filepath"

// Load resolves the full configuration for a project root: the
// `.phpbundle.kdl` file if present, overlaid with cliOverride (flags and
// --additional-rule entries from the driver), then enriched with
// .gitignore exclusions folded into the default exclude list.
func Load(root string, cliOverride *Config) (*Config, error) {
	fileCfg, err := LoadKDL(root)
	if err != nil {
		return nil, err
	}
	if fileCfg == nil {
		fileCfg = Default()
		fileCfg.Root = root
	}

	cfg := fileCfg
	if cliOverride != nil {
		cfg = Merge(fileCfg, cliOverride)
	}
	if cfg.Root == "" {
		cfg.Root = root
	}

	cfg.ExcludePatterns = append(cfg.ExcludePatterns, gitignoreExclusions(cfg.Root)...)

	return cfg, NewValidator().ValidateAndSetDefaults(cfg)
}

// gitignoreExclusions reads <root>/.gitignore, if any, and converts its
// patterns into exclude_patterns-compatible globs.
func gitignoreExclusions(root string) []string {
	parser := NewGitignoreParser()
	if err := parser.LoadGitignore(root); err != nil {
		return nil
	}
	return parser.GetExclusionPatterns()
}

// ResolveOutputPath joins cfg.Output against cfg.Root if it isn't already
// absolute, the way the CLI needs a real filesystem path to write to.
func ResolveOutputPath(cfg *Config) string {
	if filepath.IsAbs(cfg.Output) {
		return cfg.Output
	}
	return filepath.Join(cfg.Root, cfg.Output)
}
