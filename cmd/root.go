package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "snapmine",
		Usage:   "Mine git history into per-commit snapshot datasets",
		Version: "1.0.0",
		Commands: []*cli.Command{
			RunCmd(),
			IndexCmd(),
			SnapshotCmd(),
			DiffCmd(),
			ParseCmd(),
			MetadataCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
	}
}

// loadConfig loads configuration from file or defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// stringOr returns the flag value when set, otherwise the fallback.
func stringOr(c *cli.Context, name, fallback string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return fallback
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
