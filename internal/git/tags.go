package git

import (
	"context"
	"os/exec"
	"strings"
)

const derefSuffix = "^{}"

// ResolveTags builds a TagMap for the repository at repoPath.
//
// Annotated tags appear twice in the `show-ref --tags -d` listing: once as
// the tag object and once (suffixed with "^{}") as the dereferenced commit.
// Only the dereferenced line carries the true target, so it wins when both
// forms are seen. Lightweight tags appear once and are taken as-is.
//
// Tags are best-effort enrichment: if the listing cannot be obtained (for
// example because the repository has no tags), an empty map is returned.
func ResolveTags(ctx context.Context, repoPath string) TagMap {
	out, err := exec.CommandContext(ctx, "git", "-C", repoPath, "show-ref", "--tags", "-d").Output()
	if err != nil {
		return TagMap{}
	}
	return parseTagListing(string(out))
}

// parseTagListing parses `git show-ref --tags -d` output lines of the form
// "<sha> refs/tags/<name>[^{}]".
func parseTagListing(listing string) TagMap {
	tags := TagMap{}
	pending := map[string]string{}
	resolved := map[string]bool{}

	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		sha, ref := fields[0], fields[1]
		name := strings.TrimPrefix(ref, "refs/tags/")
		if strings.HasSuffix(name, derefSuffix) {
			name = strings.TrimSuffix(name, derefSuffix)
			tags[sha] = append(tags[sha], name)
			resolved[name] = true
			delete(pending, name)
		} else if !resolved[name] {
			pending[name] = sha
		}
	}

	// Whatever is still pending had no dereferenced entry: lightweight tags.
	for name, sha := range pending {
		tags[sha] = append(tags[sha], name)
	}

	return tags
}
