package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/internal/git"
	"github.com/codewharf/snapmine/internal/output"
	"github.com/codewharf/snapmine/internal/pipeline"
)

// IndexCmd returns the index command: scan history into a commit index.
func IndexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index repository history into commit metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "repo",
				Aliases:  []string{"r"},
				Usage:    "Path to the git repository to scan",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Path to write the index JSON document",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Cap on the number of commits to record",
			},
			&cli.StringFlag{
				Name:  "sort-order",
				Usage: "Chronological sorting order (asc, desc)",
				Value: "desc",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (console, json)",
				Value:   "console",
			},
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Usage:   "Number of commits to list (console format)",
			},
		},
		Action: indexAction,
	}
}

func indexAction(c *cli.Context) error {
	repoPath, err := filepath.Abs(c.String("repo"))
	if err != nil {
		return err
	}

	records, err := git.IndexHistory(c.Context, git.IndexOptions{
		RepoPath:  repoPath,
		Limit:     c.Int("limit"),
		SortOrder: c.String("sort-order"),
	})
	if err != nil {
		return err
	}

	doc := &pipeline.IndexDocument{
		RepoPath:    repoPath,
		CommitCount: len(records),
		GeneratedAt: time.Now().UTC(),
		Commits:     records,
	}

	if out := c.String("out"); out != "" {
		if err := pipeline.WriteJSON(out, doc); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	}

	format := output.ParseFormat(c.String("format"))
	return output.NewIndexWriter(format).Write(doc, output.Options{
		Format: format,
		Top:    c.Int("top"),
	})
}
