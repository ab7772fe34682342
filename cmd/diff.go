package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/internal/git"
	"github.com/codewharf/snapmine/internal/pipeline"
)

// DiffCmd returns the diff command: change-set metadata for one commit.
func DiffCmd() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Generate diff metadata for a commit against its first parent",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "repo",
				Aliases:  []string{"r"},
				Usage:    "Path to the git repository",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "commit",
				Usage:    "Commit hash to diff",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Path to write the diff JSON document (default: stdout)",
			},
		},
		Action: diffAction,
	}
}

func diffAction(c *cli.Context) error {
	record, err := git.BuildDiff(c.Context, c.String("repo"), c.String("commit"))
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := pipeline.WriteJSON(out, record); err != nil {
			return err
		}
		fmt.Printf("Wrote diff metadata to %s\n", out)
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}
