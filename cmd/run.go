package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/internal/git"
	"github.com/codewharf/snapmine/internal/output"
	"github.com/codewharf/snapmine/internal/pipeline"
	"github.com/codewharf/snapmine/internal/slice"
)

// RunCmd returns the run command: the full end-to-end pipeline.
func RunCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the full mining pipeline: index, slice, export, analyze, diff, aggregate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"r"},
				Usage:   "Repository source (local path or remote URL)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Dataset output root",
			},
			&cli.StringFlag{
				Name:    "slice-mode",
				Aliases: []string{"m"},
				Usage:   "Commit selection mode (commit, tag, release, time-interval)",
			},
			&cli.StringFlag{
				Name:  "interval",
				Usage: "Interval for time-interval mode (e.g. 30d, 2w, 12h, 45m)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Cap on commits to process after slicing",
			},
			&cli.IntFlag{
				Name:  "index-limit",
				Usage: "Cap on commits recorded during indexing",
			},
			&cli.StringFlag{
				Name:  "sort-order",
				Usage: "Index sort order (asc, desc)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Extra path patterns to exclude from export (can be repeated)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Summary output format (console, json)",
				Value:   "console",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	repo := stringOr(c, "repo", cfg.Repo)
	if repo == "" {
		return fmt.Errorf("repository source is required (--repo or config)")
	}
	outputDir := stringOr(c, "output", cfg.OutputDir)

	mode, err := slice.ParseMode(stringOr(c, "slice-mode", cfg.Slice.Mode))
	if err != nil {
		return err
	}
	interval := stringOr(c, "interval", cfg.Slice.Interval)
	// A bad interval must fail here, before any cloning or indexing work.
	if mode == slice.ModeTimeInterval {
		if _, err := slice.ParseInterval(interval); err != nil {
			return err
		}
	}

	sliceLimit := cfg.Slice.Limit
	if c.IsSet("limit") {
		v := c.Int("limit")
		sliceLimit = &v
	}

	indexLimit := cfg.Index.Limit
	if c.IsSet("index-limit") {
		indexLimit = c.Int("index-limit")
	}

	exclude := cfg.Export.Exclude
	if patterns := c.StringSlice("exclude"); len(patterns) > 0 {
		exclude = patterns
	}

	workDir, err := filepath.Abs(filepath.Join(outputDir, git.RepoName(repo)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(workDir, pipeline.LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stdout, logFile), nil))

	runner := pipeline.NewRunner(pipeline.Config{
		Repo:       repo,
		WorkDir:    workDir,
		IndexLimit: indexLimit,
		SortOrder:  stringOr(c, "sort-order", cfg.Index.SortOrder),
		SliceMode:  mode,
		Interval:   interval,
		SliceLimit: sliceLimit,
		Exclude:    exclude,
	}, logger)

	summary, err := runner.Run(c.Context)
	if err != nil {
		return err
	}

	// Failed commits are reported in the summary; only acquisition or
	// indexing failures make the run itself fail.
	format := output.ParseFormat(c.String("format"))
	return output.NewSummaryWriter(format).Write(summary, output.Options{Format: format})
}
