package git

import (
	"context"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// IndexOptions configures a history indexing pass.
type IndexOptions struct {
	RepoPath  string
	Limit     int    // cap on visited commits before sorting; 0 means unlimited
	SortOrder string // "asc" or "desc"; anything else defaults to "desc"
}

// IndexHistory traverses the repository history and returns one CommitRecord
// per visited commit, joined with its first-parent hash and tags, sorted by
// author timestamp (descending unless SortOrder is "asc").
//
// Traversal covers commits reachable from any ref, in storage order. When a
// limit is set it caps the visited set, not a post-sort top-N. Commits with
// identical timestamps keep their insertion order, which is not guaranteed
// to be stable across traversals.
func IndexHistory(ctx context.Context, opts IndexOptions) ([]CommitRecord, error) {
	repo, err := gogit.PlainOpen(opts.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", opts.RepoPath, err)
	}

	tags := ResolveTags(ctx, opts.RepoPath)

	iter, err := repo.Log(&gogit.LogOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []CommitRecord
	err = iter.ForEach(func(c *object.Commit) error {
		parent := ""
		if len(c.ParentHashes) > 0 {
			parent = c.ParentHashes[0].String()
		}

		message := c.Message
		if idx := strings.IndexByte(message, '\n'); idx != -1 {
			message = message[:idx]
		}

		hash := c.Hash.String()
		tagList := tags[hash]
		if tagList == nil {
			tagList = []string{}
		}
		records = append(records, CommitRecord{
			Hash:        hash,
			Parent:      parent,
			Author:      c.Author.Name,
			AuthorEmail: c.Author.Email,
			Timestamp:   c.Author.When.UTC(),
			Message:     message,
			Tags:        tagList,
		})

		if opts.Limit > 0 && len(records) >= opts.Limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("traverse history: %w", err)
	}

	asc := opts.SortOrder == "asc"
	sort.SliceStable(records, func(i, j int) bool {
		if asc {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return records, nil
}
