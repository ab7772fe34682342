package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/internal/snapshot"
)

// SnapshotCmd returns the snapshot command: export one commit's tree.
func SnapshotCmd() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Export a repository snapshot for a commit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "repo",
				Aliases:  []string{"r"},
				Usage:    "Path to the git repository",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "commit",
				Usage:    "Commit hash to export",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Destination directory (destroyed and recreated)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Extra path patterns to exclude (can be repeated)",
			},
		},
		Action: snapshotAction,
	}
}

func snapshotAction(c *cli.Context) error {
	commit := c.String("commit")
	out := c.String("out")
	err := snapshot.Export(c.Context, c.String("repo"), commit, out, c.StringSlice("exclude"), nil)
	if err != nil {
		return err
	}
	fmt.Printf("Exported snapshot for %s to %s\n", commit, out)
	return nil
}
