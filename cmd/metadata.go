package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/codewharf/snapmine/internal/aggregation"
)

// MetadataCmd returns the metadata command: aggregate one snapshot's
// documents into the final record.
func MetadataCmd() *cli.Command {
	return &cli.Command{
		Name:  "metadata",
		Usage: "Build aggregated metadata for a snapshot directory",
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
				Usage:   "Path to write the aggregated record (default: <snapshot-dir>/metadata.json)",
			},
		},
		Action: metadataAction,
	}
}

func metadataAction(c *cli.Context) error {
	snapshotDir := c.String("snapshot-dir")
	out := c.String("out")
	if out == "" {
		out = filepath.Join(snapshotDir, aggregation.MetadataFile)
	}

	if _, err := aggregation.BuildMetadata(snapshotDir, out); err != nil {
		return err
	}
	fmt.Printf("Wrote metadata to %s\n", out)
	return nil
}
