package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// ConfigFileName is the bundler's configuration file.
const ConfigFileName = ".phpbundle.kdl"

// LoadKDL attempts to load configuration from <projectRoot>/.phpbundle.kdl.
// Returns (nil, nil) if no such file exists: a missing config file means
// "use defaults", not an error.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ConfigFileName)
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	cfg.Root = projectRoot
	return cfg, nil
}

// parseKDL parses the §6 configuration schema out of a KDL document:
//
//	entry "main.php"
//	output "dist/bundle.php"
//	database ".phpbundle.db"
//	include_paths { "src/**" }
//	exclude_patterns { "tests/**" }
//	autoload {
//	    prefix-map "App\\" "src"
//	    classmap "App\\Foo" "src/Foo.php"
//	    files "bootstrap.php"
//	}
//	optimization {
//	    remove_comments true
//	    remove_whitespace false
//	}
//	runtime {
//	    env "production"
//	}
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "entry":
			if s, ok := firstStringArg(n); ok {
				cfg.Entry = s
			}
		case "output":
			if s, ok := firstStringArg(n); ok {
				cfg.Output = s
			}
		case "database":
			if s, ok := firstStringArg(n); ok {
				cfg.Database = s
			}
		case "include_paths":
			cfg.IncludePaths = append(cfg.IncludePaths, collectStringArgs(n)...)
		case "exclude_patterns":
			cfg.ExcludePatterns = append(cfg.ExcludePatterns, collectStringArgs(n)...)
		case "autoload":
			cfg.Autoload = append(cfg.Autoload, parseAutoloadBlock(n)...)
		case "optimization":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "remove_comments":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Optimization.RemoveComments = b
					}
				case "remove_whitespace":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Optimization.RemoveWhitespace = b
					}
				}
			}
		case "runtime":
			for _, cn := range n.Children {
				if s, ok := firstStringArg(cn); ok {
					cfg.Runtime[nodeName(cn)] = s
				}
			}
		}
	}

	return cfg, nil
}

// parseAutoloadBlock reads one rule per child node, keyed by its node name
// ("prefix-map", "legacy-prefix-map", "classmap", "files"), matching
// store.AutoloadRuleKind's string values. Each rule is "prefix" "path" for
// prefix-map/legacy-prefix-map/classmap, or just "path" for files.
func parseAutoloadBlock(n *document.Node) []AutoloadRuleSpec {
	var out []AutoloadRuleSpec
	for _, cn := range n.Children {
		kind := nodeName(cn)
		switch kind {
		case "prefix-map", "legacy-prefix-map", "classmap":
			prefix, _ := stringArgAt(cn, 0)
			path, ok := stringArgAt(cn, 1)
			if !ok {
				continue
			}
			out = append(out, AutoloadRuleSpec{Kind: kind, Prefix: prefix, Path: path})
		case "files":
			path, ok := stringArgAt(cn, 0)
			if !ok {
				continue
			}
			out = append(out, AutoloadRuleSpec{Kind: kind, Path: path})
		}
	}
	return out
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func stringArgAt(n *document.Node, i int) (string, bool) {
	if n == nil || i >= len(n.Arguments) {
		return "", false
	}
	s, ok := n.Arguments[i].Value.(string)
	return s, ok
}

func firstStringArg(n *document.Node) (string, bool) {
	return stringArgAt(n, 0)
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments)+len(n.Children))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
