package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/internal/aggregation"
	"github.com/codewharf/snapmine/internal/analyze"
	"github.com/codewharf/snapmine/internal/pipeline"
	"github.com/codewharf/snapmine/internal/snapshot"
)

// ParseCmd returns the parse command: structural summaries for a snapshot.
func ParseCmd() *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Parse structural summaries for a snapshot directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "snapshot-dir",
				Aliases:  []string{"d"},
				Usage:    "Commit snapshot directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Path to write the structural document (default: <snapshot-dir>/parsed.json)",
			},
		},
		Action: parseAction,
	}
}

func parseAction(c *cli.Context) error {
	snapshotDir := c.String("snapshot-dir")

	// Prefer the exported source/ subtree; fall back to the directory
	// itself so a bare tree can be parsed too.
	root := filepath.Join(snapshotDir, snapshot.SourceDirName)
	if _, err := os.Stat(root); err != nil {
		root = snapshotDir
	}

	doc, err := analyze.New().AnalyzeTree(c.Context, root)
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		out = filepath.Join(snapshotDir, aggregation.ParsedFile)
	}
	if err := pipeline.WriteJSON(out, doc); err != nil {
		return err
	}
	fmt.Printf("Wrote parsed snapshot to %s\n", out)
	return nil
}
