package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/codewharf/snapmine/internal/git"
)

const (
	// IndexFile is the run index document name.
	IndexFile = "index.json"
	// SummaryFile is the run summary document name.
	SummaryFile = "summary.json"
	// SnapshotsDir holds one subdirectory per materialized commit.
	SnapshotsDir = "snapshots"
	// LogFile is the per-run log file name.
	LogFile = "pipeline.log"
)

// IndexDocument is the persisted run index.
type IndexDocument struct {
	RepoPath    string             `json:"repo_path"`
	CommitCount int                `json:"commit_count"`
	GeneratedAt time.Time          `json:"generated_at"`
	Commits     []git.CommitRecord `json:"commits"`
}

// Failure records one commit that could not be processed.
type Failure struct {
	Commit string `json:"commit"`
	Error  string `json:"error"`
}

// Summary is the persisted run summary. A run with a non-empty Failed list
// is still a completed run; partial success stays auditable without
// re-running.
type Summary struct {
	Repo         string    `json:"repo"`
	OutputDir    string    `json:"output_dir"`
	TotalCommits int       `json:"total_commits"`
	Processed    int       `json:"processed"`
	Failed       []Failure `json:"failed"`
}

// WriteJSON persists a document as indented JSON, creating parent
// directories as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
