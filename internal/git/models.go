package git

import "time"

// CommitRecord holds the indexed metadata for a single commit.
type CommitRecord struct {
	Hash        string    `json:"hash"`
	Parent      string    `json:"parent,omitempty"` // first parent only; empty for a root commit
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message"` // first line of the commit message
	Tags        []string  `json:"tags"`
}

// IsRoot reports whether the commit has no recorded parent.
func (c CommitRecord) IsRoot() bool {
	return c.Parent == ""
}

// TagMap maps a commit hash to the tag names that point at it.
// For annotated tags the key is the dereferenced commit, not the tag object.
type TagMap map[string][]string

// FileStat holds per-file line counts for one changed file.
// Binary files are listed with zero counts.
type FileStat struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesDeleted int    `json:"lines_deleted"`
}

// DiffRecord describes the change-set of a commit against its first parent,
// or against the empty tree for a root commit.
type DiffRecord struct {
	Commit       string     `json:"commit"`
	Parent       string     `json:"parent,omitempty"`
	FilesChanged []FileStat `json:"files_changed"`
	LinesAdded   int        `json:"lines_added"`
	LinesDeleted int        `json:"lines_deleted"`
	Patch        string     `json:"patch"`
}
