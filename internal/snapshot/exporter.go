// Package snapshot materializes the source tree of a commit on disk.
package snapshot

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// SourceDirName is the subdirectory holding the exported tree.
	SourceDirName = "source"
	// MetadataFile is the snapshot metadata document name.
	MetadataFile = "metadata.json"

	archivePrefix = "snapshot"
)

// DefaultExcludes are always applied on top of caller-supplied patterns.
var DefaultExcludes = []string{"tests", "docs"}

// Export materializes the file tree of a commit into destDir/source plus a
// metadata document. Any pre-existing content at destDir is destroyed first.
//
// The primary tier streams a `git archive` of the commit, applying exclusion
// patterns as pathspec exclusions, and unpacks it in place. If that fails
// for any reason, a fallback tier checks the commit out into a transient
// detached worktree and copies its contents, skipping the version-control
// directory and the same exclusion patterns. The worktree is always torn
// down, even when the copy fails. If both tiers fail the error propagates:
// the exporter never leaves a silently partial tree behind.
func Export(ctx context.Context, repoPath, commit, destDir string, exclude []string, meta map[string]any) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("clear destination %s: %w", destDir, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination %s: %w", destDir, err)
	}

	sourceDir := filepath.Join(destDir, SourceDirName)
	excludes := append(append([]string{}, DefaultExcludes...), exclude...)

	if archiveErr := exportArchive(ctx, repoPath, commit, destDir, excludes); archiveErr != nil {
		if err := exportWorktree(ctx, repoPath, commit, sourceDir, excludes); err != nil {
			return fmt.Errorf("archive export failed (%v); worktree fallback failed: %w", archiveErr, err)
		}
	}

	return writeMetadata(destDir, commit, sourceDir, meta)
}

// exportArchive is the fast tier: stream a tree-archive of the commit and
// unpack it, then rename the archive root to source/.
func exportArchive(ctx context.Context, repoPath, commit, destDir string, exclude []string) error {
	args := []string{"-C", repoPath, "archive", "--format=tar", "--prefix=" + archivePrefix + "/", commit}
	var pathspecs []string
	for _, pattern := range exclude {
		if p := strings.TrimSpace(pattern); p != "" {
			pathspecs = append(pathspecs, ":(exclude)"+p)
		}
	}
	if len(pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, pathspecs...)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	untarErr := untar(tar.NewReader(stdout), destDir)
	if untarErr != nil {
		// Drain the stream so the archive process can exit.
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("git archive failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if untarErr != nil {
		return fmt.Errorf("unpack archive: %w", untarErr)
	}

	extractedRoot := filepath.Join(destDir, archivePrefix)
	if _, err := os.Stat(extractedRoot); err != nil {
		return fmt.Errorf("expected archive root %q was not created", archivePrefix+"/")
	}

	sourceDir := filepath.Join(destDir, SourceDirName)
	if err := os.RemoveAll(sourceDir); err != nil {
		return err
	}
	return os.Rename(extractedRoot, sourceDir)
}

func untar(tr *tar.Reader, destDir string) error {
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.FromSlash(hdr.Name)
		// Commit content is untrusted; entries escaping the destination are dropped.
		if !filepath.IsLocal(name) {
			continue
		}
		target := filepath.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// pax global headers and other exotic entries are skipped
		}
	}
}

// exportWorktree is the fallback tier: materialize the commit into a
// uniquely named detached worktree and copy its contents into sourceDir.
func exportWorktree(ctx context.Context, repoPath, commit, sourceDir string, exclude []string) error {
	tempDir, err := os.MkdirTemp("", "snapshot-worktree-")
	if err != nil {
		return err
	}
	defer func() {
		// The worktree registration must always be removed, even when the
		// copy step failed, or the repository leaks working-copy entries.
		_ = exec.Command("git", "-C", repoPath, "worktree", "remove", "-f", tempDir).Run()
		_ = os.RemoveAll(tempDir)
	}()

	out, err := exec.CommandContext(ctx, "git", "-C", repoPath, "worktree", "add", "--detach", tempDir, commit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("git worktree add failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if err := os.RemoveAll(sourceDir); err != nil {
		return err
	}
	return copyTree(tempDir, sourceDir, exclude)
}

func copyTree(srcRoot, destRoot string, exclude []string) error {
	return filepath.WalkDir(srcRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcRoot, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(destRoot, 0o755)
		}
		// In a linked worktree .git is a regular file pointing at the gitdir,
		// not a directory; skip it in either form.
		if d.Name() == ".git" {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if isExcluded(rel, exclude) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		target := filepath.Join(destRoot, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(p, target)
		default:
			return nil
		}
	})
}

// isExcluded matches a pattern against both the slash-relative path and the
// entry base name, so plain directory names like "tests" exclude the whole
// subtree wherever it appears.
func isExcluded(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)
	for _, pattern := range patterns {
		p := strings.TrimSpace(pattern)
		if p == "" {
			continue
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeMetadata(destDir, commit, sourceDir string, meta map[string]any) error {
	doc := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		doc[k] = v
	}
	doc["commit"] = commit
	doc["exported_at"] = time.Now().UTC().Format(time.RFC3339)
	doc["source_dir"] = sourceDir

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, MetadataFile), append(data, '\n'), 0o644)
}
