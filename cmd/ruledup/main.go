package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quailbyte/ruledup/internal/config"
	"github.com/quailbyte/ruledup/internal/debug"
	ruleduperrors "github.com/quailbyte/ruledup/internal/errors"
	"github.com/quailbyte/ruledup/internal/ruledoc"
	"github.com/quailbyte/ruledup/internal/types"
	"github.com/quailbyte/ruledup/internal/version"
	"github.com/quailbyte/ruledup/pkg/pathutil"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:                   "ruledup",
		Usage:                  "Multi-layer duplicate detection for rule documents",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".ruledup.kdl",
			},
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   "Rule pool root directory (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show debug information on stderr",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Aliases:   []string{"ck"},
				Usage:     "Check a rule document against the pool for duplicates",
				ArgsUsage: "[document.md]",
				Description: `Reads a candidate rule document from the given path (or stdin when no
path is given), loads the rule pool, and runs the detection waterfall.
A document that already lives in the pool is compared against the
other rules, not against itself.`,
				Action: checkCommand,
			},
			{
				Name:  "scan",
				Usage: "Sweep the pool against itself and report duplicate clusters",
				Description: `Checks every rule in the pool against the rest of the pool and groups
rules connected by above-threshold similarity into clusters. Only
pairs the detection waterfall itself surfaces are considered.`,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:    "threshold",
						Aliases: []string{"t"},
						Usage:   "Similarity threshold for reporting (0 = config warning threshold)",
					},
				},
				Action: scanCommand,
			},
			{
				Name:    "stats",
				Aliases: []string{"st"},
				Usage:   "Show pool, cache, and health statistics",
				Action:  statsCommand,
			},
			{
				Name:  "serve",
				Usage: "Start MCP (Model Context Protocol) server with stdio transport",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Rescan the pool when rule documents change",
					},
				},
				Action: serveCommand,
			},
			{
				Name:   "version",
				Usage:  "Show version information",
				Action: versionCommand,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			// Default to check when a document path is given
			if c.NArg() > 0 {
				return checkCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	// If a rules root is specified and the config path is default, look
	// for the config file in the rules directory
	if rulesFlag := c.String("rules"); rulesFlag != "" && configPath == ".ruledup.kdl" {
		configPath = filepath.Join(rulesFlag, ".ruledup.kdl")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if rulesFlag := c.String("rules"); rulesFlag != "" {
		// Convert to an absolute path so every command resolves the same pool
		absRoot, err := filepath.Abs(rulesFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve rules root %q: %w", rulesFlag, err)
		}
		cfg.Pool.Root = absRoot
	}

	return cfg, nil
}

// scanPool loads the rule pool from the configured root. Unparseable
// documents are skipped and returned for reporting; only a failed walk
// aborts.
func scanPool(cfg *config.Config) ([]types.Rule, []error, error) {
	rules, err := ruledoc.Scan(cfg.Pool.Root, ruledoc.OptionsFromConfig(cfg))
	if err != nil {
		var merr *ruleduperrors.MultiError
		if !errors.As(err, &merr) {
			return nil, nil, fmt.Errorf("failed to scan rule pool at %s: %w", cfg.Pool.Root, err)
		}
		return rules, merr.Errors, nil
	}
	return rules, nil, nil
}

// warnSkipped reports unparseable documents on stderr without failing
// the command.
func warnSkipped(skipped []error) {
	for _, err := range skipped {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// displayPath shortens a path to working-directory relative for
// human-readable output. JSON reports keep the path as given.
func displayPath(p string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return p
	}
	return pathutil.ToRelative(p, cwd)
}

func versionCommand(c *cli.Context) error {
	if c.Bool("json") {
		fmt.Printf("{\"version\":%q,\"commit\":%q,\"build_date\":%q}\n",
			version.Version, version.GitCommit, version.BuildDate)
		return nil
	}
	fmt.Println(version.FullInfo())
	return nil
}
