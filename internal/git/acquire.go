package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
)

// RepoName derives a directory-friendly name from a repository source,
// which may be a local path or a remote URL.
func RepoName(source string) string {
	trimmed := strings.TrimRight(source, "/")
	name := trimmed
	if idx := strings.LastIndexAny(trimmed, "/\\"); idx != -1 {
		name = trimmed[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// EnsureRepo makes the configured repository source available locally and
// returns its absolute path.
//
// An existing local path is used directly. Otherwise the source is treated
// as a remote reference cloned under cacheDir/.repo; a pre-existing clone is
// refreshed in place (all branches and tags, pruning stale refs) so re-runs
// are incremental with respect to repository state.
func EnsureRepo(ctx context.Context, source, cacheDir string, logger *slog.Logger) (string, error) {
	if fi, err := os.Stat(source); err == nil && fi.IsDir() {
		logger.Info("using existing local repository", "path", source)
		return filepath.Abs(source)
	}

	repoDir := filepath.Join(cacheDir, ".repo")
	if _, err := os.Stat(repoDir); err == nil {
		logger.Info("refreshing existing clone", "path", repoDir)
		if err := refreshClone(ctx, repoDir); err != nil {
			return "", err
		}
	} else {
		logger.Info("cloning repository", "url", source, "path", repoDir)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", err
		}
		_, err := gogit.PlainCloneContext(ctx, repoDir, false, &gogit.CloneOptions{
			URL:  source,
			Tags: gogit.AllTags,
		})
		if err != nil {
			return "", fmt.Errorf("clone %s: %w", source, err)
		}
	}

	return filepath.Abs(repoDir)
}

func refreshClone(ctx context.Context, repoDir string) error {
	repo, err := gogit.PlainOpen(repoDir)
	if err != nil {
		return fmt.Errorf("open cached clone %s: %w", repoDir, err)
	}

	err = repo.FetchContext(ctx, &gogit.FetchOptions{
		RefSpecs: []gitconfig.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Tags:     gogit.AllTags,
		Prune:    true,
		Force:    true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", repoDir, err)
	}
	return nil
}
