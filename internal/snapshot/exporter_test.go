package snapshot

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/codewharf/snapmine/internal/gittest"
)

func exportTestRepo(t *testing.T) (string, string) {
	t.Helper()

	repoPath, repo := gittest.InitRepo(t)
	commit := gittest.Commit(t, repo, "initial", map[string]string{
		"README.md":       "# demo\n",
		"pkg/x.py":        "def f():\n    return 1\n",
		"tests/test_x.py": "def test_f():\n    assert True\n",
		"docs/guide.md":   "guide\n",
	}, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC))

	return repoPath, commit
}

// listFiles returns the slash-relative paths of all regular files under root.
func listFiles(t *testing.T, root string) []string {
	t.Helper()

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", root, err)
	}
	sort.Strings(files)
	return files
}

func TestExport_MaterializesSourceTree(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	destDir := filepath.Join(t.TempDir(), "snap")

	err := Export(context.Background(), repoPath, commit, destDir, nil, map[string]any{"message": "initial"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	files := listFiles(t, filepath.Join(destDir, SourceDirName))
	expected := []string{"README.md", "pkg/x.py"}
	if len(files) != len(expected) {
		t.Fatalf("Exported files = %v, expected %v", files, expected)
	}
	for i := range expected {
		if files[i] != expected[i] {
			t.Fatalf("Exported files = %v, expected %v", files, expected)
		}
	}

	content, err := os.ReadFile(filepath.Join(destDir, SourceDirName, "pkg", "x.py"))
	if err != nil {
		t.Fatalf("Failed to read exported file: %v", err)
	}
	if string(content) != "def f():\n    return 1\n" {
		t.Errorf("Exported content = %q, expected the committed content", content)
	}
}

func TestExport_DefaultExcludesApplied(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	destDir := filepath.Join(t.TempDir(), "snap")

	if err := Export(context.Background(), repoPath, commit, destDir, nil, nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	for _, excluded := range []string{"tests", "docs"} {
		if _, err := os.Stat(filepath.Join(destDir, SourceDirName, excluded)); err == nil {
			t.Errorf("Excluded directory %s was exported", excluded)
		}
	}
}

func TestExport_CustomExcludePatterns(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	destDir := filepath.Join(t.TempDir(), "snap")

	if err := Export(context.Background(), repoPath, commit, destDir, []string{"*.md"}, nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	files := listFiles(t, filepath.Join(destDir, SourceDirName))
	if len(files) != 1 || files[0] != "pkg/x.py" {
		t.Errorf("Exported files = %v, expected only pkg/x.py", files)
	}
}

func TestExport_WritesMetadata(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	destDir := filepath.Join(t.TempDir(), "snap")

	meta := map[string]any{"message": "initial", "author": "Test Author"}
	if err := Export(context.Background(), repoPath, commit, destDir, nil, meta); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, MetadataFile))
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to parse metadata: %v", err)
	}

	if doc["commit"] != commit {
		t.Errorf("metadata commit = %v, expected %s", doc["commit"], commit)
	}
	if doc["message"] != "initial" || doc["author"] != "Test Author" {
		t.Errorf("Caller metadata not merged: %v", doc)
	}
	if doc["source_dir"] != filepath.Join(destDir, SourceDirName) {
		t.Errorf("metadata source_dir = %v, expected the source path", doc["source_dir"])
	}
	exportedAt, ok := doc["exported_at"].(string)
	if !ok {
		t.Fatalf("metadata exported_at = %v, expected a timestamp string", doc["exported_at"])
	}
	if _, err := time.Parse(time.RFC3339, exportedAt); err != nil {
		t.Errorf("metadata exported_at %q is not RFC3339: %v", exportedAt, err)
	}
}

func TestExport_ReplacesExistingDestination(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	destDir := filepath.Join(t.TempDir(), "snap")

	stale := filepath.Join(destDir, SourceDirName, "stale.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatalf("Failed to seed destination: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("Failed to seed destination: %v", err)
	}

	if err := Export(context.Background(), repoPath, commit, destDir, nil, nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if _, err := os.Stat(stale); err == nil {
		t.Error("Stale file survived a re-export")
	}
}

func TestExport_UnknownCommit(t *testing.T) {
	repoPath, _ := exportTestRepo(t)
	destDir := filepath.Join(t.TempDir(), "snap")

	err := Export(context.Background(), repoPath, "0123456789abcdef0123456789abcdef01234567", destDir, nil, nil)
	if err == nil {
		t.Error("Export of an unknown commit should return an error")
	}
}

func TestExportWorktree_MatchesArchiveTier(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	excludes := append(append([]string{}, DefaultExcludes...), "*.md")

	archiveDest := filepath.Join(t.TempDir(), "archive")
	if err := os.MkdirAll(archiveDest, 0o755); err != nil {
		t.Fatalf("Failed to create destination: %v", err)
	}
	if err := exportArchive(context.Background(), repoPath, commit, archiveDest, excludes); err != nil {
		t.Fatalf("exportArchive failed: %v", err)
	}

	worktreeSource := filepath.Join(t.TempDir(), "worktree", SourceDirName)
	if err := exportWorktree(context.Background(), repoPath, commit, worktreeSource, excludes); err != nil {
		t.Fatalf("exportWorktree failed: %v", err)
	}

	fromArchive := listFiles(t, filepath.Join(archiveDest, SourceDirName))
	fromWorktree := listFiles(t, worktreeSource)
	if len(fromArchive) != len(fromWorktree) {
		t.Fatalf("Tiers disagree: archive %v, worktree %v", fromArchive, fromWorktree)
	}
	for i := range fromArchive {
		if fromArchive[i] != fromWorktree[i] {
			t.Fatalf("Tiers disagree: archive %v, worktree %v", fromArchive, fromWorktree)
		}
	}
}

func TestExportWorktree_SkipsGitMetadata(t *testing.T) {
	repoPath, commit := exportTestRepo(t)
	sourceDir := filepath.Join(t.TempDir(), SourceDirName)

	if err := exportWorktree(context.Background(), repoPath, commit, sourceDir, DefaultExcludes); err != nil {
		t.Fatalf("exportWorktree failed: %v", err)
	}

	// A linked worktree carries .git as a file; it must not be copied.
	if _, err := os.Stat(filepath.Join(sourceDir, ".git")); err == nil {
		t.Error("Fallback export copied the .git entry into the source tree")
	}
}

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		rel      string
		patterns []string
		expected bool
	}{
		{"tests", []string{"tests"}, true},
		{"nested/tests", []string{"tests"}, true},
		{"tests_extra", []string{"tests"}, false},
		{"README.md", []string{"*.md"}, true},
		{"pkg/x.py", []string{"*.md"}, false},
		{"pkg/gen/out.go", []string{"pkg/gen/**"}, true},
		{"anything", nil, false},
		{"anything", []string{"  "}, false},
	}
	for _, tt := range tests {
		if got := isExcluded(tt.rel, tt.patterns); got != tt.expected {
			t.Errorf("isExcluded(%q, %v) = %v, expected %v", tt.rel, tt.patterns, got, tt.expected)
		}
	}
}
