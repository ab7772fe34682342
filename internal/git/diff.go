package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// BuildDiff computes the change-set of a commit against its first parent.
// For a root commit (no parent) the comparison is against the empty tree.
func BuildDiff(ctx context.Context, repoPath, commit string) (*DiffRecord, error) {
	parent, err := resolveFirstParent(repoPath, commit)
	if err != nil {
		return nil, err
	}

	files, added, deleted, err := collectNumstat(ctx, repoPath, parent, commit)
	if err != nil {
		return nil, err
	}

	patch, err := collectPatch(ctx, repoPath, parent, commit)
	if err != nil {
		return nil, err
	}

	return &DiffRecord{
		Commit:       commit,
		Parent:       parent,
		FilesChanged: files,
		LinesAdded:   added,
		LinesDeleted: deleted,
		Patch:        patch,
	}, nil
}

// resolveFirstParent returns the first-parent hash of the commit, or an
// empty string when the parent lookup fails because none exists.
func resolveFirstParent(repoPath, commit string) (string, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return "", fmt.Errorf("resolve commit %s: %w", commit, err)
	}

	c, err := repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", commit, err)
	}

	p, err := c.Parent(0)
	if err != nil {
		if errors.Is(err, object.ErrParentNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve parent of %s: %w", commit, err)
	}
	return p.Hash.String(), nil
}

// emptyTreeHash is the hash of the empty tree object. Root commits are
// compared against it so their full content shows up as additions.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

func diffArgs(repoPath, sub string, parent, commit string, extra ...string) []string {
	args := []string{"-C", repoPath, "diff", sub}
	args = append(args, extra...)
	if parent == "" {
		parent = emptyTreeHash
	}
	return append(args, parent, commit)
}

// collectNumstat runs `git diff --numstat` and parses path<TAB>added<TAB>deleted
// lines. Binary files are reported by git with "-" markers and recorded with
// zero counts, but stay listed by path.
func collectNumstat(ctx context.Context, repoPath, parent, commit string) ([]FileStat, int, int, error) {
	args := diffArgs(repoPath, "--numstat", parent, commit)
	out, err := runGit(ctx, args)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("git diff --numstat: %w", err)
	}

	files := []FileStat{}
	var totalAdded, totalDeleted int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, 0, 0, fmt.Errorf("unexpected numstat line: %q", line)
		}

		added, deleted := 0, 0
		if parts[0] != "-" {
			if added, err = strconv.Atoi(parts[0]); err != nil {
				return nil, 0, 0, fmt.Errorf("parse numstat added %q: %w", parts[0], err)
			}
			if deleted, err = strconv.Atoi(parts[1]); err != nil {
				return nil, 0, 0, fmt.Errorf("parse numstat deleted %q: %w", parts[1], err)
			}
		}

		totalAdded += added
		totalDeleted += deleted
		files = append(files, FileStat{Path: parts[2], LinesAdded: added, LinesDeleted: deleted})
	}

	return files, totalAdded, totalDeleted, nil
}

// collectPatch captures the full unified diff text for the same comparison.
func collectPatch(ctx context.Context, repoPath, parent, commit string) (string, error) {
	out, err := runGit(ctx, diffArgs(repoPath, "--no-color", parent, commit))
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return out, nil
}

// runGit runs a git command and returns stdout, folding stderr into the
// error on failure.
func runGit(ctx context.Context, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
