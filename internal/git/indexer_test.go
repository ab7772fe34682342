package git

import (
	"context"
	"testing"
	"time"

	"github.com/codewharf/snapmine/internal/gittest"
)

// threeCommitRepo builds a linear history: an initial commit, a second one
// adding a file, and a tagged third one. Returns the repo path and the
// hashes oldest-first.
func threeCommitRepo(t *testing.T) (string, []string) {
	t.Helper()

	repoPath, repo := gittest.InitRepo(t)
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	first := gittest.Commit(t, repo, "initial commit", map[string]string{
		"README.md": "# demo\n",
	}, base)
	second := gittest.Commit(t, repo, "add module\n\nlong body here", map[string]string{
		"pkg/x.py": "def f():\n    return 1\n",
	}, base.Add(24*time.Hour))
	third := gittest.Commit(t, repo, "trim module", map[string]string{
		"pkg/x.py": "def f():\n    return 2\n",
	}, base.Add(48*time.Hour))
	gittest.Tag(t, repo, "v1.0", third, true)

	return repoPath, []string{first, second, third}
}

func TestIndexHistory_DescendingOrder(t *testing.T) {
	repoPath, hashes := threeCommitRepo(t)

	records, err := IndexHistory(context.Background(), IndexOptions{RepoPath: repoPath})
	if err != nil {
		t.Fatalf("IndexHistory failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Indexed %d commits, expected 3", len(records))
	}
	for i, want := range []string{hashes[2], hashes[1], hashes[0]} {
		if records[i].Hash != want {
			t.Errorf("records[%d].Hash = %s, expected %s", i, records[i].Hash, want)
		}
	}
}

func TestIndexHistory_AscendingOrder(t *testing.T) {
	repoPath, hashes := threeCommitRepo(t)

	records, err := IndexHistory(context.Background(), IndexOptions{RepoPath: repoPath, SortOrder: "asc"})
	if err != nil {
		t.Fatalf("IndexHistory failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Indexed %d commits, expected 3", len(records))
	}
	for i, want := range hashes {
		if records[i].Hash != want {
			t.Errorf("records[%d].Hash = %s, expected %s", i, records[i].Hash, want)
		}
	}
}

func TestIndexHistory_RecordFields(t *testing.T) {
	repoPath, hashes := threeCommitRepo(t)

	records, err := IndexHistory(context.Background(), IndexOptions{RepoPath: repoPath})
	if err != nil {
		t.Fatalf("IndexHistory failed: %v", err)
	}

	byHash := map[string]CommitRecord{}
	for _, r := range records {
		byHash[r.Hash] = r
	}

	root := byHash[hashes[0]]
	if root.Parent != "" {
		t.Errorf("Root commit parent = %q, expected empty", root.Parent)
	}
	if !root.IsRoot() {
		t.Error("Root commit should report IsRoot")
	}
	if root.Message != "initial commit" {
		t.Errorf("Root message = %q, expected %q", root.Message, "initial commit")
	}
	if root.Author != "Test Author" || root.AuthorEmail != "test@example.com" {
		t.Errorf("Root author = %s <%s>, expected test signature", root.Author, root.AuthorEmail)
	}
	if root.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, expected UTC", root.Timestamp.Location())
	}
	if root.Tags == nil || len(root.Tags) != 0 {
		t.Errorf("Untagged commit tags = %#v, expected empty non-nil slice", root.Tags)
	}

	second := byHash[hashes[1]]
	if second.Parent != hashes[0] {
		t.Errorf("Second commit parent = %s, expected %s", second.Parent, hashes[0])
	}
	if second.Message != "add module" {
		t.Errorf("Multi-line message truncated to %q, expected first line only", second.Message)
	}

	third := byHash[hashes[2]]
	if len(third.Tags) != 1 || third.Tags[0] != "v1.0" {
		t.Errorf("Tagged commit tags = %v, expected [v1.0]", third.Tags)
	}
}

func TestIndexHistory_LimitCapsTraversal(t *testing.T) {
	repoPath, hashes := threeCommitRepo(t)

	records, err := IndexHistory(context.Background(), IndexOptions{RepoPath: repoPath, Limit: 2})
	if err != nil {
		t.Fatalf("IndexHistory failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Indexed %d commits with limit 2, expected 2", len(records))
	}
	// Traversal starts at the newest ref, so the cap keeps the two most
	// recent commits.
	if records[0].Hash != hashes[2] || records[1].Hash != hashes[1] {
		t.Errorf("Limited index = [%s %s], expected [%s %s]",
			records[0].Hash, records[1].Hash, hashes[2], hashes[1])
	}
}

func TestIndexHistory_MissingRepo(t *testing.T) {
	if _, err := IndexHistory(context.Background(), IndexOptions{RepoPath: t.TempDir()}); err == nil {
		t.Error("IndexHistory on a non-repository should return an error")
	}
}
