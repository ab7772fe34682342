// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// InitRepo creates a temporary non-bare repository.
func InitRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()

	tmpDir := t.TempDir()
	repo, err := gogit.PlainInit(tmpDir, false)
	if err != nil {
		t.Fatalf("Failed to initialize git repo: %v", err)
	}
	return tmpDir, repo
}

// Commit writes the given files (path relative to the worktree root, with
// forward slashes) with the given contents, stages them and commits with the
// given author time. It returns the commit hash.
func Commit(t *testing.T, repo *gogit.Repository, message string, files map[string]string, when time.Time) string {
	t.Helper()

	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	for name, content := range files {
		path := filepath.Join(w.Filesystem.Root(), filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write file %s: %v", name, err)
		}
		if _, err := w.Add(name); err != nil {
			t.Fatalf("Failed to add file %s: %v", name, err)
		}
	}

	hash, err := w.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  when,
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return hash.String()
}

// Tag creates a tag pointing at the given commit, annotated or lightweight.
func Tag(t *testing.T, repo *gogit.Repository, name, commit string, annotated bool) {
	t.Helper()

	var opts *gogit.CreateTagOptions
	if annotated {
		opts = &gogit.CreateTagOptions{
			Tagger: &object.Signature{
				Name:  "Test Author",
				Email: "test@example.com",
				When:  time.Now(),
			},
			Message: "release " + name,
		}
	}
	if _, err := repo.CreateTag(name, plumbing.NewHash(commit), opts); err != nil {
		t.Fatalf("Failed to create tag %s: %v", name, err)
	}
}
