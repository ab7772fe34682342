package git

import (
	"context"
	"testing"
	"time"

	"github.com/codewharf/snapmine/internal/gittest"
)

func TestParseTagListing_LightweightTags(t *testing.T) {
	listing := "aaa1 refs/tags/v1.0\n" +
		"bbb2 refs/tags/v2.0\n"

	tags := parseTagListing(listing)

	if got := tags["aaa1"]; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("tags[aaa1] = %v, expected [v1.0]", got)
	}
	if got := tags["bbb2"]; len(got) != 1 || got[0] != "v2.0" {
		t.Errorf("tags[bbb2] = %v, expected [v2.0]", got)
	}
}

func TestParseTagListing_AnnotatedDereferenceWins(t *testing.T) {
	// An annotated tag lists the tag object first and the dereferenced
	// commit second. Only the commit hash should carry the tag.
	listing := "tagobj1 refs/tags/v1.0\n" +
		"commit1 refs/tags/v1.0^{}\n"

	tags := parseTagListing(listing)

	if got := tags["commit1"]; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("tags[commit1] = %v, expected [v1.0]", got)
	}
	if got := tags["tagobj1"]; len(got) != 0 {
		t.Errorf("tags[tagobj1] = %v, expected no tags on the tag object", got)
	}
}

func TestParseTagListing_DereferenceWinsRegardlessOfOrder(t *testing.T) {
	listing := "commit1 refs/tags/v1.0^{}\n" +
		"tagobj1 refs/tags/v1.0\n"

	tags := parseTagListing(listing)

	if got := tags["commit1"]; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("tags[commit1] = %v, expected [v1.0]", got)
	}
	if got := tags["tagobj1"]; len(got) != 0 {
		t.Errorf("tags[tagobj1] = %v, expected no tags on the tag object", got)
	}
}

func TestParseTagListing_MultipleTagsOnOneCommit(t *testing.T) {
	listing := "commit1 refs/tags/v1.0\n" +
		"commit1 refs/tags/stable\n"

	tags := parseTagListing(listing)

	got := tags["commit1"]
	if len(got) != 2 {
		t.Fatalf("tags[commit1] = %v, expected two tags", got)
	}
}

func TestParseTagListing_IgnoresMalformedLines(t *testing.T) {
	listing := "\n" +
		"garbage\n" +
		"one two three\n" +
		"commit1 refs/tags/v1.0\n"

	tags := parseTagListing(listing)

	if len(tags) != 1 {
		t.Fatalf("parseTagListing kept %d entries, expected 1", len(tags))
	}
	if got := tags["commit1"]; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("tags[commit1] = %v, expected [v1.0]", got)
	}
}

func TestResolveTags_EmptyWithoutTags(t *testing.T) {
	repoPath, repo := gittest.InitRepo(t)
	gittest.Commit(t, repo, "initial", map[string]string{"f.txt": "x\n"}, time.Now())

	tags := ResolveTags(context.Background(), repoPath)
	if len(tags) != 0 {
		t.Errorf("ResolveTags on untagged repo = %v, expected empty", tags)
	}
}

func TestResolveTags_MissingRepoIsEmpty(t *testing.T) {
	tags := ResolveTags(context.Background(), t.TempDir())
	if len(tags) != 0 {
		t.Errorf("ResolveTags on non-repo = %v, expected empty", tags)
	}
}

func TestResolveTags_AnnotatedAndLightweight(t *testing.T) {
	repoPath, repo := gittest.InitRepo(t)
	first := gittest.Commit(t, repo, "first", map[string]string{"f.txt": "x\n"}, time.Now().Add(-time.Hour))
	second := gittest.Commit(t, repo, "second", map[string]string{"f.txt": "x\ny\n"}, time.Now())

	gittest.Tag(t, repo, "v1.0", first, true)
	gittest.Tag(t, repo, "wip", second, false)

	tags := ResolveTags(context.Background(), repoPath)

	if got := tags[first]; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("tags[%s] = %v, expected [v1.0]", first, got)
	}
	if got := tags[second]; len(got) != 1 || got[0] != "wip" {
		t.Errorf("tags[%s] = %v, expected [wip]", second, got)
	}
	// The annotated tag object itself must not appear as a key.
	for sha := range tags {
		if sha != first && sha != second {
			t.Errorf("Unexpected tag target %s", sha)
		}
	}
}
