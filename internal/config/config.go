package config

import (
	"fmt"
	"strings"
)

// AutoloadRuleSpec is one embedded prefix-map definition from the
// `autoload` block, or one `--additional-rule kind:prefix:path` CLI flag
// (§6). Kind matches store.AutoloadRuleKind's string values.
type AutoloadRuleSpec struct {
	Kind     string
	Prefix   string
	Path     string
	Priority int
}

// Optimization holds the optimization.* keys.
type Optimization struct {
	RemoveComments   bool
	RemoveWhitespace bool
}

// Config is the parsed form of the configuration document (§6). The core
// never reads the raw document — only this parsed tree.
type Config struct {
	Entry           string
	Output          string
	Database        string
	IncludePaths    []string
	ExcludePatterns []string
	Autoload        []AutoloadRuleSpec
	Optimization    Optimization
	Runtime         map[string]string

	// ExternalAutoloadConfig is the `analyze --autoload-config` path (§6):
	// a composer.json-style manifest to ingest in addition to composer.json
	// at the project root and the embedded `autoload` block above.
	ExternalAutoloadConfig string

	// Root is the project directory the configuration file lives in;
	// every relative path above is resolved against it. Not itself a
	// config key — set by the loader from the file's location or the
	// --root flag.
	Root string
}

// Default returns a Config with the documented defaults applied, before
// any file or CLI overrides are merged in.
func Default() *Config {
	return &Config{
		Database: ".phpbundle.db",
		Runtime:  make(map[string]string),
	}
}

// ParseAdditionalRule parses one `--additional-rule kind:prefix:path`
// flag value (§6), e.g. "prefix-map:App\\:src" or "classmap:App\\Foo:src/Foo.php".
func ParseAdditionalRule(raw string) (AutoloadRuleSpec, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return AutoloadRuleSpec{}, fmt.Errorf("additional-rule must be kind:prefix:path, got %q", raw)
	}
	return AutoloadRuleSpec{Kind: parts[0], Prefix: parts[1], Path: parts[2]}, nil
}

// Merge overlays non-zero fields of override onto base, the way the CLI's
// flags and --additional-rule entries layer on top of the file-sourced
// Config. IncludePaths/ExcludePatterns/Autoload are appended, not replaced.
func Merge(base, override *Config) *Config {
	merged := *base
	if override.Entry != "" {
		merged.Entry = override.Entry
	}
	if override.Output != "" {
		merged.Output = override.Output
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Root != "" {
		merged.Root = override.Root
	}
	if override.ExternalAutoloadConfig != "" {
		merged.ExternalAutoloadConfig = override.ExternalAutoloadConfig
	}
	merged.IncludePaths = append(append([]string{}, base.IncludePaths...), override.IncludePaths...)
	merged.ExcludePatterns = append(append([]string{}, base.ExcludePatterns...), override.ExcludePatterns...)
	merged.Autoload = append(append([]AutoloadRuleSpec{}, base.Autoload...), override.Autoload...)
	if override.Optimization != (Optimization{}) {
		merged.Optimization = override.Optimization
	}
	merged.Runtime = make(map[string]string, len(base.Runtime)+len(override.Runtime))
	for k, v := range base.Runtime {
		merged.Runtime[k] = v
	}
	for k, v := range override.Runtime {
		merged.Runtime[k] = v
	}
	return &merged
}
