// Package pipeline drives the history mining and snapshot pipeline:
// acquire repository, index, slice, then export/analyze/diff/aggregate
// per selected commit with per-commit failure isolation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codewharf/snapmine/internal/aggregation"
	"github.com/codewharf/snapmine/internal/analyze"
	"github.com/codewharf/snapmine/internal/git"
	"github.com/codewharf/snapmine/internal/slice"
	"github.com/codewharf/snapmine/internal/snapshot"
)

// Config holds the settings for one pipeline run.
type Config struct {
	Repo       string     // local path or remote reference
	WorkDir    string     // repository-scoped output directory
	IndexLimit int        // cap on visited commits during indexing; 0 = unlimited
	SortOrder  string     // index sort order: "asc" or "desc"
	SliceMode  slice.Mode // commit selection strategy
	Interval   string     // interval specifier for time-interval mode
	SliceLimit *int       // cap on commits after slicing; nil = no cap
	Exclude    []string   // extra path-exclusion patterns for export
}

// Runner owns the stage components for the duration of one run. The logger
// handle lives exactly as long as the run and is never shared across runs.
type Runner struct {
	cfg      Config
	log      *slog.Logger
	analyzer *analyze.Analyzer
}

// NewRunner creates a runner with all stage components constructed.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, log: logger, analyzer: analyze.New()}
}

// Run executes the full pipeline. Failures to acquire the repository, index
// it, or a misconfigured slice are fatal; per-commit failures are logged,
// recorded in the summary and skipped, and the run continues.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := os.MkdirAll(r.cfg.WorkDir, 0o755); err != nil {
		return nil, err
	}

	repoPath, err := git.EnsureRepo(ctx, r.cfg.Repo, r.cfg.WorkDir, r.log)
	if err != nil {
		return nil, fmt.Errorf("acquire repository: %w", err)
	}

	records, err := git.IndexHistory(ctx, git.IndexOptions{
		RepoPath:  repoPath,
		Limit:     r.cfg.IndexLimit,
		SortOrder: r.cfg.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("index repository: %w", err)
	}
	r.log.Info("indexed commits", "count", len(records))

	index := IndexDocument{
		RepoPath:    repoPath,
		CommitCount: len(records),
		GeneratedAt: time.Now().UTC(),
		Commits:     records,
	}
	if err := WriteJSON(filepath.Join(r.cfg.WorkDir, IndexFile), index); err != nil {
		return nil, err
	}

	// A misconfigured slice must surface before any per-commit work starts.
	selected, err := slice.Slice(records, slice.Options{
		Mode:     r.cfg.SliceMode,
		Interval: r.cfg.Interval,
		Limit:    r.cfg.SliceLimit,
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("selected commits", "count", len(selected), "mode", string(r.cfg.SliceMode))

	snapshotRoot := filepath.Join(r.cfg.WorkDir, SnapshotsDir)
	failures := []Failure{}
	for _, commit := range selected {
		if err := r.processCommit(ctx, repoPath, filepath.Join(snapshotRoot, commit.Hash), commit); err != nil {
			r.log.Error("commit processing failed", "commit", commit.Hash, "error", err)
			failures = append(failures, Failure{Commit: commit.Hash, Error: err.Error()})
			continue
		}
		r.log.Info("finished commit", "commit", commit.Hash)
	}

	summary := &Summary{
		Repo:         r.cfg.Repo,
		OutputDir:    r.cfg.WorkDir,
		TotalCommits: len(records),
		Processed:    len(selected) - len(failures),
		Failed:       failures,
	}
	if err := WriteJSON(filepath.Join(r.cfg.WorkDir, SummaryFile), summary); err != nil {
		return nil, err
	}
	r.log.Info("pipeline completed", "processed", summary.Processed, "failed", len(failures))
	return summary, nil
}

// processCommit runs the per-commit stage sequence. Errors bubble up
// undecorated; the caller is the single isolation point that decides
// fatal-vs-recoverable.
func (r *Runner) processCommit(ctx context.Context, repoPath, dir string, c git.CommitRecord) error {
	meta := map[string]any{
		"commit":       c.Hash,
		"timestamp":    c.Timestamp.Format(time.RFC3339),
		"message":      c.Message,
		"author":       c.Author,
		"author_email": c.AuthorEmail,
		"parent":       c.Parent,
		"tags":         c.Tags,
	}
	if err := snapshot.Export(ctx, repoPath, c.Hash, dir, r.cfg.Exclude, meta); err != nil {
		return err
	}

	parsed, err := r.analyzer.AnalyzeTree(ctx, filepath.Join(dir, snapshot.SourceDirName))
	if err != nil {
		return err
	}
	if err := WriteJSON(filepath.Join(dir, aggregation.ParsedFile), parsed); err != nil {
		return err
	}

	diff, err := git.BuildDiff(ctx, repoPath, c.Hash)
	if err != nil {
		return err
	}
	if err := WriteJSON(filepath.Join(dir, aggregation.DiffFile), diff); err != nil {
		return err
	}

	_, err = aggregation.BuildMetadata(dir, filepath.Join(dir, aggregation.MetadataFile))
	return err
}
