// Command phpbundle is the driver CLI (§6): it loads configuration, opens
// the persistent store, and drives the dependency-graph engine through
// the analyze/pack/files/dependencies commands. Exit code 0 on success,
// 1 on any fatal error.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/phpbundle/internal/config"
	"github.com/standardbeagle/phpbundle/internal/debug"
	"github.com/standardbeagle/phpbundle/internal/driver"
	berrors "github.com/standardbeagle/phpbundle/internal/errors"
	"github.com/standardbeagle/phpbundle/internal/store"
	"github.com/standardbeagle/phpbundle/internal/version"
)

func main() {
	app := &cli.App{
		Name:                   "phpbundle",
		Usage:                  "pack a PHP autoloader-driven program into one self-contained file",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file path (not read: configuration always comes from <root>/.phpbundle.kdl)", Value: config.ConfigFileName},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "project root directory (overrides config)"},
			&cli.StringFlag{Name: "database", Aliases: []string{"db"}, Usage: "persistent store path (overrides config)"},
			&cli.StringFlag{Name: "autoload-config", Usage: "external autoload-config path (composer.json-style)"},
			&cli.StringSliceFlag{Name: "additional-rule", Usage: "extra autoload rule, kind:prefix:path (repeatable)"},
		},
		Commands: []*cli.Command{
			analyzeCommand,
			packCommand,
			filesCommand,
			dependenciesCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration the way §6 describes: the project
// root's .phpbundle.kdl overlaid with the root/database flags and any
// --additional-rule entries. The --config flag's value is not read; the
// file name is always .phpbundle.kdl under the root.
func loadConfig(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, berrors.NewConfigurationError("root", err)
		}
		root = wd
	}
	override, err := buildOverride(root, c.Args().First(), c.String("database"), c.String("autoload-config"), c.StringSlice("additional-rule"))
	if err != nil {
		return nil, err
	}
	return config.Load(override.Root, override)
}

// buildOverride turns the CLI's root/entry/database/autoload-config/
// additional-rule inputs into the CLI-sourced Config overlay config.Load
// merges onto the file-sourced one. Split out from loadConfig so it can
// be exercised without constructing a cli.Context.
func buildOverride(root, entryArg, database, autoloadConfig string, additionalRules []string) (*config.Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, berrors.NewConfigurationError("root", err)
	}

	override := &config.Config{Root: absRoot}
	if entryArg != "" {
		override.Entry = entryArg
	}
	if database != "" {
		override.Database = database
	}
	if autoloadConfig != "" {
		override.ExternalAutoloadConfig = autoloadConfig
	}
	for _, raw := range additionalRules {
		spec, err := config.ParseAdditionalRule(raw)
		if err != nil {
			return nil, berrors.NewConfigurationError("additional-rule", err)
		}
		override.Autoload = append(override.Autoload, spec)
	}
	return override, nil
}

func printWarnings(warnings []error) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%d warning(s):\n", len(warnings))
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, " -", w)
	}
}

var analyzeCommand = &cli.Command{
	Name:      "analyze",
	Usage:     "run the dependency resolver fixpoint from an entry file and report warnings",
	ArgsUsage: "<entry>",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.Args().First() == "" && cfg.Entry == "" {
			return berrors.NewConfigurationError("entry", fmt.Errorf("entry is required"))
		}

		p, err := driver.Open(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		debug.LogResolve("analyzing from entry %s", cfg.Entry)
		warnings, err := p.Analyze(cfg.Entry)
		if err != nil {
			return err
		}
		printWarnings(warnings.All())
		fmt.Printf("analyzed %s (%d warning(s))\n", cfg.Entry, warnings.Len())
		return nil
	},
}

var packCommand = &cli.Command{
	Name:  "pack",
	Usage: "analyze and emit a single self-contained output file",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "watch", Usage: "re-pack incrementally whenever a watched .php file changes"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		p, err := driver.Open(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		if c.Bool("watch") {
			stop := make(chan struct{})
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt)
			go func() { <-sig; close(stop) }()

			return p.Watch(stop, func(warnings []error, err error) {
				if err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					return
				}
				printWarnings(warnings)
				fmt.Printf("wrote %s\n", config.ResolveOutputPath(cfg))
			})
		}

		warnings, err := p.Pack()
		if err != nil {
			return err
		}
		printWarnings(warnings)
		fmt.Printf("wrote %s\n", config.ResolveOutputPath(cfg))
		return nil
	},
}

var filesCommand = &cli.Command{
	Name:  "files",
	Usage: "list the files in the entry's resolved load order",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		p, err := driver.Open(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		if _, err := p.Analyze(cfg.Entry); err != nil {
			return err
		}
		ordered, warnings, err := p.Emit(cfg.Entry)
		if err != nil {
			return err
		}
		printWarnings(warnings)
		for i, f := range ordered {
			fmt.Printf("%3d  %-10s  %s\n", i+1, f.ClassKind, f.Path)
		}
		return nil
	},
}

var dependenciesCommand = &cli.Command{
	Name:      "dependencies",
	Usage:     "show the dependency edges recorded for one file",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return berrors.NewConfigurationError("path", fmt.Errorf("a file path is required"))
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		f, ok, err := st.GetFileByPath(path)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no such file in store: %s (run analyze first)", path)
		}

		edges, err := st.GetEdgesOf(f.ID)
		if err != nil {
			return err
		}
		for _, e := range edges {
			target := "<unresolved>"
			if e.IsResolved && e.TargetFileID != nil {
				if tf, ok, _ := st.GetFileByID(*e.TargetFileID); ok {
					target = tf.Path
				}
			} else if e.ExternallySatisfied {
				target = "<builtin>"
			}
			label := e.TargetSymbol
			if label == "" {
				label = e.Context
			}
			fmt.Printf("%-20s line %-4d  %-40s -> %s\n", e.Kind, e.Line, label, target)
		}
		return nil
	},
}
